package sound

import "github.com/rs/zerolog"

// Player renders a resolved sound asset to an audio device. The concrete
// device binding lives outside this module; LogPlayer stands in when the
// process runs headless.
type Player interface {
	Play(kind Kind, path string, volume int)
}

// LogPlayer records playback requests in the log stream instead of an
// audio device.
type LogPlayer struct {
	logger zerolog.Logger
}

// NewLogPlayer constructs a logging player.
func NewLogPlayer(logger zerolog.Logger) *LogPlayer {
	return &LogPlayer{logger: logger.With().Str("component", "sound_player").Logger()}
}

// Play logs the request. Volume 0 is muted and short-circuits.
func (p *LogPlayer) Play(kind Kind, path string, volume int) {
	if volume <= 0 {
		return
	}
	p.logger.Info().Str("kind", string(kind)).Str("path", path).Int("volume", volume).Msg("play sound")
}

var _ Player = (*LogPlayer)(nil)
