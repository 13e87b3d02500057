package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flvkit/flvkit/cmd/flags"
)

var RootCmd = &cobra.Command{
	Use:   "flvkit",
	Short: "flvkit",
	Long:  `flvkit: flv muxing and rtmp delivery toolkit`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flags.Debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "debug mode")
	RootCmd.PersistentFlags().BoolVar(&flags.Dev, "dev", false, "dev mode")
}
