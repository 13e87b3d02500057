package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flvkit/flvkit/cmd/flags"
)

var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Start flvkit client",
	Long:  `Pull or relay a remote rtmp stream`,
}

func init() {
	RootCmd.AddCommand(ClientCmd)
	ClientCmd.PersistentFlags().
		StringVar(&flags.Dial, "dial", "rtmp://127.0.0.1:1935/app/channel", "dial to server")
}
