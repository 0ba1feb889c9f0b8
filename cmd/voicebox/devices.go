package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voicebox/internal/audio"
)

func devicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List playback and capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ae, err := audio.NewAudioEngine(a.cfg.Audio.Backend, a.log.WithField("component", "malgo"))
			if err != nil {
				return err
			}
			defer ae.Close()

			out := cmd.OutOrStdout()
			for _, capture := range []bool{false, true} {
				devices, err := ae.Devices(capture)
				if err != nil {
					return err
				}
				title := "Playback"
				if capture {
					title = "Capture"
				}
				fmt.Fprintf(out, "%s devices:\n", title)
				for _, d := range devices {
					mark := " "
					if d.IsDefault {
						mark = "*"
					}
					fmt.Fprintf(out, " %s %s\n", mark, d.Name)
				}
			}
			return nil
		},
	}
}
