// voices lists the ElevenLabs voices available to the configured account.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/gridscout/internal/config"
	"github.com/teslashibe/gridscout/internal/log"
	"github.com/teslashibe/gridscout/pkg/audio"
	"github.com/teslashibe/gridscout/pkg/tts"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Credentials file")
	say := flag.String("say", "", "Speak this text with the first listed voice")
	flag.Parse()

	log.Init(log.Options{Level: "info"})

	creds, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := tts.NewElevenLabs(tts.WithAPIKey(creds.ElevenLabsKey), tts.WithLogger(log.L()))
	if err != nil {
		stdlog.Fatalf("❌ ElevenLabs: %v", err)
	}
	defer client.Close()

	listCtx, listCancel := context.WithTimeout(ctx, 15*time.Second)
	voices, err := client.Voices(listCtx)
	listCancel()
	if err != nil {
		stdlog.Fatalf("❌ Listing voices: %v", err)
	}

	for _, v := range voices {
		fmt.Println(v)
	}
	fmt.Printf("\n%d voices\n", len(voices))

	if *say == "" || len(voices) == 0 {
		return
	}

	speaker, err := tts.NewElevenLabs(
		tts.WithAPIKey(creds.ElevenLabsKey),
		tts.WithVoice(voices[0].VoiceID),
		tts.WithLogger(log.L()),
	)
	if err != nil {
		stdlog.Fatalf("❌ ElevenLabs: %v", err)
	}

	stream, err := speaker.Stream(ctx, *say)
	if err != nil {
		stdlog.Fatalf("❌ Synthesis failed: %v", err)
	}

	player := audio.NewPlayer(audio.DefaultConfig())
	if err := player.Play(ctx, stream); err != nil {
		fmt.Fprintln(os.Stderr, "playback failed:", err)
		os.Exit(1)
	}
}
