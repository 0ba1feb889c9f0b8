package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voicebox/internal/audio"
	"voicebox/internal/pcmfile"
	"voicebox/internal/stream"
)

func playCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play a raw PCM or WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), args[0])
		},
	}
	formatFlags(cmd.Flags())
	return cmd
}

func (a *app) play(ctx context.Context, path string) error {
	var f audio.Format
	var err error
	if pcmfile.IsWAV(path) {
		f, err = pcmfile.Probe(path)
	} else {
		f, err = a.cfg.Play.Format()
	}
	if err != nil {
		return err
	}

	engine, closeEngine, err := a.newEngine()
	if err != nil {
		return err
	}
	defer closeEngine()

	sub := engine.Subscribe()
	defer sub.Close()

	if err := engine.Start(stream.Playback, stream.Request{Path: path, Format: f}); err != nil {
		return err
	}
	a.log.WithField("format", f.String()).Infof("playing %s", path)

	e, err := waitStopped(ctx, sub, stream.Playback)
	if errors.Is(err, context.Canceled) {
		return engine.Stop(stream.Playback)
	}
	if err != nil {
		return err
	}
	if e.Reason == stream.ReasonDevice {
		return fmt.Errorf("playback of %s aborted by the output device", path)
	}
	return nil
}
