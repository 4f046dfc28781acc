package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tf-alerter/internal/overlay"
	"tf-alerter/internal/sound"
	"tf-alerter/internal/timeframe"
)

// Toggles gate each audio class independently.
type Toggles struct {
	Voice      bool
	Tick       bool
	Transition bool
}

// Options tune the sequencer.
type Options struct {
	// LeadTime is how many seconds before a close the voice alert fires.
	LeadTime int
	// PollInterval is the evaluation cadence. 250ms catches the 55-58s
	// tick window reliably even under timer jitter.
	PollInterval time.Duration
	// OverlayRefresh is the overlay clock text cadence.
	OverlayRefresh time.Duration
	Volume         int
}

// Deps are the collaborators the sequencer reads on every tick. The
// function fields return fresh snapshots so user changes apply on the next
// second without any transition handling.
type Deps struct {
	Table         *timeframe.Table
	Library       *sound.Library
	Player        sound.Player
	Surface       overlay.Surface
	Active        func() timeframe.Set
	Toggles       func() Toggles
	OverlayPolicy func() overlay.Policy
	Foreground    func() string
	Overrides     func() overlay.Overrides
	// Now exists for tests; defaults to time.Now.
	Now func() time.Time
}

// Sequencer drives the per-second candle-close state machine. It must run
// on a single goroutine; all fields are unsynchronized.
type Sequencer struct {
	opts   Options
	deps   Deps
	logger zerolog.Logger

	notifications chan string

	// lastPlayedSecond guards at-most-once evaluation per absolute
	// second-of-day; lastTickSecond is a separate guard for the 55-58s
	// ticks so they survive multiple dispatch paths.
	lastPlayedSecond int
	lastTickSecond   int
}

// New constructs a sequencer.
func New(opts Options, deps Deps, logger zerolog.Logger) *Sequencer {
	if opts.LeadTime <= 0 || opts.LeadTime >= 60 {
		opts.LeadTime = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.OverlayRefresh <= 0 {
		opts.OverlayRefresh = 100 * time.Millisecond
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Sequencer{
		opts:             opts,
		deps:             deps,
		logger:           logger.With().Str("component", "clock").Logger(),
		notifications:    make(chan string, 16),
		lastPlayedSecond: -1,
		lastTickSecond:   -1,
	}
}

// Notifications returns the close-notification stream (the time signal).
func (s *Sequencer) Notifications() <-chan string {
	return s.notifications
}

// Run blocks, evaluating the state machine until ctx is cancelled.
func (s *Sequencer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	overlayTicker := time.NewTicker(s.opts.OverlayRefresh)
	defer overlayTicker.Stop()

	s.logger.Info().Dur("poll", s.opts.PollInterval).Int("lead_time", s.opts.LeadTime).Msg("clock engine started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-overlayTicker.C:
			s.updateOverlayTime()
		case <-ticker.C:
			s.Tick(s.deps.Now())
		}
	}
}

// Tick runs one evaluation at the given instant. Candle logic uses UTC;
// only display formatting uses local time.
func (s *Sequencer) Tick(now time.Time) {
	utc := now.UTC()
	sec := utc.Second()
	total := utc.Hour()*3600 + utc.Minute()*60 + sec

	if total != s.lastPlayedSecond {
		s.lastPlayedSecond = total
		active := s.deps.Active()

		// The close we are counting down to is the upcoming minute
		// boundary: at second 50 it is 10 seconds away.
		nextMinute := utc.Add(time.Duration(60-sec) * time.Second)
		if key, ok := timeframe.Closing(nextMinute, active); ok {
			s.dispatch(key, sec, total)
		}

		// The literal close instant re-evaluates "now" and emits text
		// only; the audio already played at the lead mark.
		if sec == 0 {
			if key, ok := timeframe.Closing(utc, active); ok {
				s.notify(timeframe.CloseMessage(key))
			}
		}
	}

	s.applyVisibility()
}

func (s *Sequencer) dispatch(key timeframe.Key, sec, total int) {
	def := s.deps.Table.Get(key)
	toggles := s.deps.Toggles()

	switch {
	case sec == 60-s.opts.LeadTime:
		if toggles.Voice {
			s.play(sound.KindVoice, def.VoiceSound)
		}
		s.notify(fmt.Sprintf("%s (in %ds)", timeframe.CloseMessage(key), s.opts.LeadTime))
	case sec >= 55 && sec <= 58:
		if total != s.lastTickSecond {
			s.lastTickSecond = total
			if toggles.Tick {
				s.play(sound.KindTick, def.TickSound)
			}
		}
	case sec == 59:
		if toggles.Transition {
			s.play(sound.KindTransition, def.TransitionSound)
		}
	}
}

func (s *Sequencer) play(kind sound.Kind, filename string) {
	path, ok := s.deps.Library.Path(kind, filename)
	if !ok {
		s.logger.Debug().Str("kind", string(kind)).Str("file", filename).Msg("sound not in cache")
		return
	}
	s.deps.Player.Play(kind, path, s.opts.Volume)
}

// notify never blocks the tick path; a full channel drops the message.
func (s *Sequencer) notify(text string) {
	select {
	case s.notifications <- text:
	default:
		s.logger.Warn().Str("text", text).Msg("notification channel full, dropped")
	}
}

func (s *Sequencer) applyVisibility() {
	if s.deps.Surface == nil || s.deps.OverlayPolicy == nil {
		return
	}
	policy := s.deps.OverlayPolicy()

	title := ""
	// Only resolve the foreground window when the policy actually needs it.
	if policy.Enabled && policy.Mode != overlay.ModeAlways && s.deps.Foreground != nil {
		title = s.deps.Foreground()
	}

	var ov overlay.Overrides
	if s.deps.Overrides != nil {
		ov = s.deps.Overrides()
	}

	overlay.Apply(s.deps.Surface, policy.Visible(title, ov))
}

func (s *Sequencer) updateOverlayTime() {
	if s.deps.Surface == nil {
		return
	}
	s.deps.Surface.SetTime(s.deps.Now().Local().Format("15:04:05"))
}
