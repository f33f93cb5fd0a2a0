package scout

import (
	"context"

	"github.com/teslashibe/gridscout/pkg/audio"
	"github.com/teslashibe/gridscout/pkg/tts"
)

// Voice speaks by streaming synthesized audio straight into a player.
type Voice struct {
	Provider tts.Provider
	Player   *audio.Player
}

// Speak synthesizes text and plays it, returning once playback ends.
func (v *Voice) Speak(ctx context.Context, text string) error {
	stream, err := v.Provider.Stream(ctx, text)
	if err != nil {
		return err
	}
	return v.Player.Play(ctx, stream)
}
