package sound

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"tf-alerter/internal/timeframe"
)

func TestLibraryResolvesKindSubdirFirst(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Voice"), 0o755); err != nil {
		t.Fatal(err)
	}
	preferred := filepath.Join(dir, "Voice", "1h_voice.wav")
	fallback := filepath.Join(dir, "1h_voice.wav")
	for _, p := range []string{preferred, fallback} {
		if err := os.WriteFile(p, []byte("riff"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	library := NewLibrary(dir, zerolog.Nop())
	library.Preload(timeframe.NewTable(nil))

	path, ok := library.Path(KindVoice, "1h_voice.wav")
	if !ok {
		t.Fatal("expected cached path")
	}
	if path != preferred {
		t.Fatalf("expected kind subdir to win, got %s", path)
	}
}

func TestLibraryFallsBackToBaseDir(t *testing.T) {
	dir := t.TempDir()
	flat := filepath.Join(dir, "5m_tick.wav")
	if err := os.WriteFile(flat, []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}

	library := NewLibrary(dir, zerolog.Nop())
	library.Preload(timeframe.NewTable(nil))

	path, ok := library.Path(KindTick, "5m_tick.wav")
	if !ok || path != flat {
		t.Fatalf("expected flat-layout fallback, got (%q, %v)", path, ok)
	}
}

func TestLibraryMissingAssetNotCached(t *testing.T) {
	library := NewLibrary(t.TempDir(), zerolog.Nop())
	library.Preload(timeframe.NewTable(nil))

	if _, ok := library.Path(KindVoice, "1h_voice.wav"); ok {
		t.Fatal("missing file must not be cached")
	}
}
