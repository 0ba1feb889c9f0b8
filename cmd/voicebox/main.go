package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"voicebox/internal/audio"
	"voicebox/internal/config"
	"voicebox/internal/log"
	"voicebox/internal/pcmfile"
	"voicebox/internal/stream"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "voicebox",
		Short:         "Play and record raw PCM files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindAnnotated(a.v, cmd.Flags()); err != nil {
				return err
			}
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./voicebox.yaml)")
	flags.String("log-level", "info", "log level")
	flags.Bool("log-json", false, "log in JSON")
	flags.String("backend", "auto", "audio backend: auto, null, alsa, pulse, coreaudio or wasapi")
	annotate(flags, map[string]string{
		"log.level":     "log-level",
		"log.json":      "log-json",
		"audio.backend": "backend",
	})

	root.AddCommand(
		playCommand(a),
		recordCommand(a),
		wavCommand(a),
		devicesCommand(a),
		configCommand(a),
		remoteCommand(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := log.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return err
	}
	logger.SetOutput(os.Stderr)
	if file := a.v.ConfigFileUsed(); file != "" {
		logger.WithField("file", file).Debug("config file loaded")
	}
	a.cfg = cfg
	a.log = logger
	return nil
}

// newEngine opens the audio context and a stream engine on top of it. The returned func
// releases both.
func (a *app) newEngine() (*stream.Engine, func(), error) {
	ae, err := audio.NewAudioEngine(a.cfg.Audio.Backend, a.log.WithField("component", "malgo"))
	if err != nil {
		return nil, nil, err
	}
	engine := stream.NewEngine(ae,
		stream.WithLogger(logrus.NewEntry(a.log)),
		stream.WithOpener(pcmfile.Open),
		stream.WithRecordFormat(a.cfg.Record.SampleRate, a.cfg.Record.Quantum),
	)
	return engine, func() {
		engine.Close()
		ae.Close()
	}, nil
}

// waitStopped blocks until the session in dir stops or ctx is done.
func waitStopped(ctx context.Context, sub *stream.Subscription, dir stream.Direction) (stream.Event, error) {
	for {
		select {
		case e, ok := <-sub.C():
			if !ok {
				return stream.Event{}, fmt.Errorf("event stream closed")
			}
			if e.Kind == stream.EventStopped && e.Direction == dir {
				return e, nil
			}
		case <-ctx.Done():
			return stream.Event{}, ctx.Err()
		}
	}
}
