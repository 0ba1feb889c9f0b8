package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"voicebox/internal/pcmfile"
)

func recordCommand(a *app) *cobra.Command {
	var (
		duration time.Duration
		wavPath  string
	)
	cmd := &cobra.Command{
		Use:   "record <file>",
		Short: "Record mono 16-bit PCM from the default input until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return a.record(ctx, args[0], wavPath)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long")
	cmd.Flags().StringVar(&wavPath, "wav", "", "also write the recording as a WAV file")
	cmd.Flags().String("endianness", "native", "sample byte order: big, little or native")
	annotate(cmd.Flags(), map[string]string{"record.endianness": "endianness"})
	return cmd
}

func (a *app) record(ctx context.Context, path, wavPath string) error {
	engine, closeEngine, err := a.newEngine()
	if err != nil {
		return err
	}
	defer closeEngine()

	order := a.cfg.Record.ByteOrder()
	if err := engine.Recorder().Start(path, order); err != nil {
		return err
	}
	a.log.Infof("recording to %s", path)

	<-ctx.Done()
	engine.Recorder().Stop()

	if wavPath == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		a.log.Warnf("nothing captured, %s not written", wavPath)
		return nil
	}
	if err := pcmfile.ExportWAV(path, wavPath, engine.Recorder().Format(order)); err != nil {
		return err
	}
	a.log.Infof("wrote %s", wavPath)
	return nil
}
