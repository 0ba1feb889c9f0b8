package main

import (
	"github.com/spf13/cobra"

	"voicebox/internal/pcmfile"
)

func wavCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wav <raw> <out.wav>",
		Short: "Wrap a raw PCM file into a WAV container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.cfg.Play.Format()
			if err != nil {
				return err
			}
			return pcmfile.ExportWAV(args[0], args[1], f)
		},
	}
	formatFlags(cmd.Flags())
	return cmd
}
