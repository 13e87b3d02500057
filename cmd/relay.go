package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/client"
	"github.com/flvkit/flvkit/cmd/flags"
)

var RelayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay a stream between servers",
	Long:  `Pull a remote rtmp stream and republish it to another server`,
	Run:   Relay,
}

func Relay(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	puller, err := client.NewRtmpClient(av.PLAY)
	if err != nil {
		logrus.Fatal(err)
	}
	if err := puller.Dial(ctx, flags.Source); err != nil {
		logrus.Fatal(err)
	}
	defer puller.Close()

	pusher, err := client.NewRtmpClient(av.PUBLISH)
	if err != nil {
		logrus.Fatal(err)
	}
	if err := pusher.Dial(ctx, flags.Dest); err != nil {
		logrus.Fatal(err)
	}
	defer pusher.Close()

	pipe := av.NewPipe(1024)
	if _, err := puller.AddPlayer(pipe); err != nil {
		logrus.Fatal(err)
	}

	go func() {
		if err := pusher.PushStart(ctx, pipe); err != nil {
			logrus.Errorf("relay: push stopped: %v", err)
		}
	}()

	if err := puller.PullStart(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	ClientCmd.AddCommand(RelayCmd)
	RelayCmd.Flags().StringVar(&flags.Source, "src", "", "rtmp url to pull from")
	RelayCmd.Flags().StringVar(&flags.Dest, "dst", "", "rtmp url to push to")
	RelayCmd.MarkFlagRequired("src")
	RelayCmd.MarkFlagRequired("dst")
}
