package sound

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"tf-alerter/internal/timeframe"
)

// Kind distinguishes the three audio classes of the close sequence.
type Kind string

const (
	KindVoice      Kind = "voice"
	KindTick       Kind = "tick"
	KindTransition Kind = "transition"
)

// Library resolves sound asset names to absolute paths. All filesystem
// probing happens once in Preload so the clock tick path never touches
// disk.
type Library struct {
	baseDir string
	logger  zerolog.Logger
	cache   map[string]string
}

// NewLibrary constructs a library rooted at baseDir (the Sounds folder).
func NewLibrary(baseDir string, logger zerolog.Logger) *Library {
	return &Library{
		baseDir: baseDir,
		logger:  logger.With().Str("component", "sound_library").Logger(),
		cache:   make(map[string]string),
	}
}

func (l *Library) kindDir(kind Kind) string {
	switch kind {
	case KindVoice:
		return filepath.Join(l.baseDir, "Voice")
	case KindTick:
		return filepath.Join(l.baseDir, "Tick")
	case KindTransition:
		return filepath.Join(l.baseDir, "Transition")
	}
	return l.baseDir
}

// resolve locates a file in its kind subdirectory, falling back to the
// base Sounds folder for assets laid out the old flat way.
func (l *Library) resolve(kind Kind, filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	preferred := filepath.Join(l.kindDir(kind), filename)
	if _, err := os.Stat(preferred); err == nil {
		return preferred, true
	}
	fallback := filepath.Join(l.baseDir, filename)
	if _, err := os.Stat(fallback); err == nil {
		return fallback, true
	}
	return "", false
}

// Preload resolves every asset referenced by the timeframe table and caches
// the results. Missing files are logged once here instead of every play.
func (l *Library) Preload(table *timeframe.Table) {
	loaded := 0
	for _, key := range timeframe.Keys {
		def := table.Get(key)
		for _, asset := range []struct {
			kind Kind
			file string
		}{
			{KindVoice, def.VoiceSound},
			{KindTick, def.TickSound},
			{KindTransition, def.TransitionSound},
		} {
			path, ok := l.resolve(asset.kind, asset.file)
			if !ok {
				l.logger.Warn().Str("kind", string(asset.kind)).Str("file", asset.file).Msg("sound asset not found")
				continue
			}
			l.cache[cacheKey(asset.kind, asset.file)] = path
			loaded++
		}
	}
	l.logger.Info().Int("loaded", loaded).Msg("sound cache ready")
}

// Path returns the cached absolute path for an asset, if present.
func (l *Library) Path(kind Kind, filename string) (string, bool) {
	path, ok := l.cache[cacheKey(kind, filename)]
	return path, ok
}

func cacheKey(kind Kind, filename string) string {
	return string(kind) + "_" + filename
}
