package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/client"
	"github.com/flvkit/flvkit/cmd/flags"
	"github.com/flvkit/flvkit/container/flv"
)

var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a stream to an flv file",
	Long:  `Pull a remote rtmp stream and write it to a local flv file`,
	Run:   Record,
}

func Record(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	c, err := client.NewRtmpClient(av.PLAY)
	if err != nil {
		logrus.Fatal(err)
	}
	if err := c.Dial(ctx, flags.Dial); err != nil {
		logrus.Fatal(err)
	}
	defer c.Close()

	file, err := os.Create(flags.FilePath)
	if err != nil {
		logrus.Fatal(err)
	}
	defer file.Close()

	w := flv.NewWriter(ctx, file)
	defer w.Close()

	if _, err := c.AddPlayer(w); err != nil {
		logrus.Fatal(err)
	}

	if err := c.PullStart(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	ClientCmd.AddCommand(RecordCmd)
	RecordCmd.Flags().StringVarP(&flags.FilePath, "file", "f", "record.flv", "flv save to filepath")
}
