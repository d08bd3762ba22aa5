package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// The worker invocation contract spells the iteration bound
// "--max-iterations"; accept the same spelling here.
var debateFlagAliases = map[string]string{
	"max-iterations": "iterations",
	"address":        "addr",
}

func addDebateFlagAliases(cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		setFlagAliases(cmd.Flags(), debateFlagAliases)
	}
}

func setFlagAliases(flags *pflag.FlagSet, aliases map[string]string) {
	if len(aliases) == 0 {
		return
	}

	normalize := flags.GetNormalizeFunc()
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		return normalize(f, name)
	})
}
