package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"voicebox/internal/control"
)

func remoteCommand(a *app) *cobra.Command {
	var (
		url     string
		follow  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "remote <start|stop|release|state> <play|record> [path]",
		Short: "Send a command to a running voiceboxd",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dialCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			client, err := control.Dial(dialCtx, url)
			if err != nil {
				return fmt.Errorf("dial %s: %w", url, err)
			}
			defer client.Close()

			c := control.Command{Op: args[0], Direction: args[1]}
			if len(args) == 3 {
				c.Path = args[2]
			}
			reply, err := client.Do(dialCtx, c)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(reply); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			for {
				select {
				case e, ok := <-client.Events():
					if !ok {
						return nil
					}
					if err := enc.Encode(e); err != nil {
						return err
					}
				case <-ctx.Done():
					if errors.Is(ctx.Err(), context.Canceled) {
						return nil
					}
					return ctx.Err()
				}
			}
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8080/control", "voiceboxd control endpoint")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing events after the reply")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "dial and reply timeout")
	return cmd
}
