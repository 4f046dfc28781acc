package app

import (
	"fmt"

	"tf-alerter/internal/sound"
	"tf-alerter/internal/timeframe"
)

// TestSound plays one timeframe's voice asset so users can verify their
// sound files resolve before trading hours.
func (a *App) TestSound(raw string) error {
	key, ok := timeframe.Parse(raw)
	if !ok {
		return fmt.Errorf("unknown timeframe %q", raw)
	}

	table, library := a.newSoundLibrary()
	def := table.Get(key)

	path, ok := library.Path(sound.KindVoice, def.VoiceSound)
	if !ok {
		return fmt.Errorf("voice asset %q not found under %s", def.VoiceSound, a.Config.Timeframes.SoundsDir)
	}

	player := sound.NewLogPlayer(a.Logger)
	player.Play(sound.KindVoice, path, a.Config.Clock.Volume)
	a.Logger.Info().Str("timeframe", string(key)).Str("path", path).Msg("voice asset played")
	return nil
}
