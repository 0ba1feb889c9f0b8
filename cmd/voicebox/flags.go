package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configKeyAnnotation = "voicebox/config-key"

// annotate marks flags with the config keys they override. Commands that share a flag name
// bind it only while they are the one executing.
func annotate(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := flags.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
			panic(err)
		}
	}
}

// bindAnnotated binds every annotated flag of the executing command to its config key.
func bindAnnotated(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		keys, ok := f.Annotations[configKeyAnnotation]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(keys[0], f)
	})
	return err
}

// formatFlags registers the raw format flags shared by play and wav.
func formatFlags(flags *pflag.FlagSet) {
	flags.Int("channels", 2, "channel count")
	flags.Int("rate", 44100, "sample rate in Hz")
	flags.Int("bits", 16, "bits per sample: 8 or 16")
	flags.String("layout", "stereo", "channel layout: mono or stereo")
	flags.String("endianness", "native", "sample byte order: big, little or native")
	annotate(flags, map[string]string{
		"play.channels":   "channels",
		"play.samplerate": "rate",
		"play.bits":       "bits",
		"play.layout":     "layout",
		"play.endianness": "endianness",
	})
}
