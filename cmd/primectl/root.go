package main

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/primesplit/internal/logging"
)

const envPrefix = "PRIMECTL"

// cli carries what every subcommand needs.
type cli struct {
	v   *viper.Viper
	out io.Writer
	log zerolog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:          "primectl",
		Short:        "Count primes over ranges split between workers",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			c.log = logging.Console(errOut, c.v.GetString("log-level"))
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().String("coordinator", "http://localhost:8080", "coordinator base URL")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.BindPFlags(root.PersistentFlags())

	root.AddCommand(c.countCmd(), c.submitCmd(), c.statusCmd())
	return root
}
