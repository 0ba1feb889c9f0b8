package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"voicebox/internal/audio"
	"voicebox/internal/config"
	"voicebox/internal/control"
	"voicebox/internal/log"
	"voicebox/internal/metrics"
	"voicebox/internal/pcmfile"
	"voicebox/internal/stream"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func command() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "voiceboxd",
		Short:         "Serve the voicebox stream engine over a websocket control endpoint",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			logger, err := log.New(cfg.Log.Level, cfg.Log.JSON)
			if err != nil {
				return err
			}
			if file := v.ConfigFileUsed(); file != "" {
				logger.WithField("file", file).Debug("config file loaded")
			}
			return serve(cmd.Context(), cfg, logrus.NewEntry(logger))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./voicebox.yaml)")
	flags.String("listen", ":8080", "HTTP listen address")
	flags.String("backend", "auto", "audio backend")
	flags.Bool("metrics", true, "serve /metrics")
	for key, name := range map[string]string{
		"server.listen":  "listen",
		"audio.backend":  "backend",
		"server.metrics": "metrics",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	play, err := cfg.Play.Format()
	if err != nil {
		return err
	}

	ae, err := audio.NewAudioEngine(cfg.Audio.Backend, log.WithField("component", "malgo"))
	if err != nil {
		return err
	}
	defer ae.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	engine := stream.NewEngine(ae,
		stream.WithLogger(log),
		stream.WithMetrics(m),
		stream.WithOpener(pcmfile.Open),
		stream.WithRecordFormat(cfg.Record.SampleRate, cfg.Record.Quantum),
	)
	defer engine.Close()

	mux := http.NewServeMux()
	mux.Handle("/control", control.NewServer(engine, play, cfg.Record.ByteOrder(), log))
	if cfg.Server.Metrics {
		mux.Handle("/metrics", m.Handler())
	}

	g, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Control connections are hijacked, so Shutdown does not wait for them; they end
		// with this context instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("voiceboxd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
