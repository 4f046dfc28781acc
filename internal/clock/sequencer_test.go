package clock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tf-alerter/internal/overlay"
	"tf-alerter/internal/sound"
	"tf-alerter/internal/timeframe"
)

type playedSound struct {
	kind sound.Kind
	path string
}

type fakePlayer struct {
	played []playedSound
}

func (p *fakePlayer) Play(kind sound.Kind, path string, volume int) {
	p.played = append(p.played, playedSound{kind: kind, path: path})
}

func newTestSequencer(t *testing.T, active timeframe.Set) (*Sequencer, *fakePlayer) {
	t.Helper()

	dir := t.TempDir()
	table := timeframe.NewTable(nil)
	library := sound.NewLibrary(dir, zerolog.Nop())
	writeAssets(t, dir)
	library.Preload(table)

	player := &fakePlayer{}
	seq := New(Options{LeadTime: 10, Volume: 80}, Deps{
		Table:   table,
		Library: library,
		Player:  player,
		Active:  func() timeframe.Set { return active },
		Toggles: func() Toggles { return Toggles{Voice: true, Tick: true, Transition: true} },
	}, zerolog.Nop())
	return seq, player
}

func writeAssets(t *testing.T, dir string) {
	t.Helper()
	table := timeframe.NewTable(nil)
	for _, key := range timeframe.Keys {
		def := table.Get(key)
		for _, name := range []string{def.VoiceSound, def.TickSound, def.TransitionSound} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("riff"), 0o644); err != nil {
				t.Fatalf("write asset: %v", err)
			}
		}
	}
}

func at(sec int) time.Time {
	// 09:59:xx UTC, so the upcoming minute boundary is 10:00 (an hour close).
	return time.Date(2025, time.September, 3, 9, 59, sec, 0, time.UTC)
}

func TestSequencerFullCloseSequence(t *testing.T) {
	seq, player := newTestSequencer(t, timeframe.NewSet(timeframe.H1))

	for sec := 45; sec <= 59; sec++ {
		seq.Tick(at(sec))
	}
	seq.Tick(time.Date(2025, time.September, 3, 10, 0, 0, 0, time.UTC))

	var kinds []sound.Kind
	for _, p := range player.played {
		kinds = append(kinds, p.kind)
	}
	want := []sound.Kind{
		sound.KindVoice,                                                    // second 50
		sound.KindTick, sound.KindTick, sound.KindTick, sound.KindTick,     // 55-58
		sound.KindTransition,                                               // 59
	}
	if len(kinds) != len(want) {
		t.Fatalf("played %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("played %v, want %v", kinds, want)
		}
	}

	// Two notifications: the lead warning and the silent close.
	assertNotification(t, seq, "Hourly candle closed! (in 10s)")
	assertNotification(t, seq, "Hourly candle closed!")
}

func TestSequencerAtMostOncePerSecond(t *testing.T) {
	seq, player := newTestSequencer(t, timeframe.NewSet(timeframe.H1))

	// A 4x-per-second poll hits the same second repeatedly.
	for i := 0; i < 4; i++ {
		seq.Tick(at(50))
	}
	for i := 0; i < 4; i++ {
		seq.Tick(at(55))
	}

	if len(player.played) != 2 {
		t.Fatalf("expected one voice and one tick, got %d plays", len(player.played))
	}
	if player.played[0].kind != sound.KindVoice || player.played[1].kind != sound.KindTick {
		t.Fatalf("unexpected sequence: %+v", player.played)
	}
}

func TestSequencerNoClosingTimeframe(t *testing.T) {
	// Only 1h enabled and the upcoming boundary is 09:31: nothing plays.
	seq, player := newTestSequencer(t, timeframe.NewSet(timeframe.H1))
	base := time.Date(2025, time.September, 3, 9, 30, 0, 0, time.UTC)
	for sec := 45; sec <= 59; sec++ {
		seq.Tick(base.Add(time.Duration(sec) * time.Second))
	}
	if len(player.played) != 0 {
		t.Fatalf("expected silence, got %+v", player.played)
	}
}

func TestSequencerSetChangeMidCycle(t *testing.T) {
	active := timeframe.NewSet(timeframe.H1)
	dir := t.TempDir()
	table := timeframe.NewTable(nil)
	library := sound.NewLibrary(dir, zerolog.Nop())
	writeAssets(t, dir)
	library.Preload(table)
	player := &fakePlayer{}
	seq := New(Options{LeadTime: 10}, Deps{
		Table:   table,
		Library: library,
		Player:  player,
		Active:  func() timeframe.Set { return active },
		Toggles: func() Toggles { return Toggles{Voice: true, Tick: true, Transition: true} },
	}, zerolog.Nop())

	seq.Tick(at(50))
	if len(player.played) != 1 {
		t.Fatalf("expected lead voice, got %+v", player.played)
	}

	// Disabling every timeframe before the tick window silences the rest.
	active = timeframe.NewSet()
	for sec := 55; sec <= 59; sec++ {
		seq.Tick(at(sec))
	}
	if len(player.played) != 1 {
		t.Fatalf("state must derive fresh each second, got %+v", player.played)
	}
}

func TestSequencerVisibilityApplied(t *testing.T) {
	surface := &recordingSurface{}
	seq := New(Options{}, Deps{
		Table:         timeframe.NewTable(nil),
		Library:       sound.NewLibrary(t.TempDir(), zerolog.Nop()),
		Player:        &fakePlayer{},
		Surface:       surface,
		Active:        func() timeframe.Set { return timeframe.NewSet() },
		Toggles:       func() Toggles { return Toggles{} },
		OverlayPolicy: func() overlay.Policy { return overlay.Policy{Enabled: true, Mode: overlay.ModeAlways} },
	}, zerolog.Nop())

	seq.Tick(at(10))
	seq.Tick(at(11))
	if surface.shows != 1 || !surface.visible {
		t.Fatalf("overlay should be shown exactly once, shows=%d", surface.shows)
	}
}

type recordingSurface struct {
	visible bool
	shows   int
}

func (s *recordingSurface) SetTime(string) {}
func (s *recordingSurface) Show()          { s.visible = true; s.shows++ }
func (s *recordingSurface) Hide()          { s.visible = false }
func (s *recordingSurface) Visible() bool  { return s.visible }

func assertNotification(t *testing.T, seq *Sequencer, want string) {
	t.Helper()
	select {
	case got := <-seq.Notifications():
		if got != want {
			t.Fatalf("notification %q, want %q", got, want)
		}
	default:
		t.Fatalf("expected notification %q, channel empty", want)
	}
}
