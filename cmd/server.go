package cmd

import (
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"

	"github.com/flvkit/flvkit/cmd/flags"
	"github.com/flvkit/flvkit/config"
	"github.com/flvkit/flvkit/protocol/httpflv"
	"github.com/flvkit/flvkit/protocol/wsflv"
	"github.com/flvkit/flvkit/server"
	"github.com/flvkit/flvkit/utils"
)

var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start flvkit server",
	Long:  `Start the rtmp ingest server with http-flv and ws-flv playback`,
	Run:   Server,
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func Server(cmd *cobra.Command, args []string) {
	cfg := &config.Config{}
	if flags.ConfigPath != "" {
		c, err := config.Load(flags.ConfigPath)
		if err != nil {
			logrus.Fatalf("load config: %v", err)
		}
		cfg = c
	} else {
		cfg.Server.Listen = flags.Listen
		cfg.Server.Port = flags.Port
		cfg.Server.ConnBufferSize = 4096
		cfg.Server.AutoCreate = true
	}

	host := fmt.Sprintf("%s:%d", cfg.Server.Listen, cfg.Server.Port)
	fmt.Printf("Run on tcp://%s\nRtmp: rtmp://%s/{app}/{channel}\nWebAPI: http://%s/{app}/{channel}\n", host, host, host)
	listener, err := net.Listen("tcp", host)
	if err != nil {
		logrus.Fatalf("listen %s: %v", host, err)
	}
	muxer := cmux.New(listener)
	httpl := muxer.Match(cmux.HTTP1Fast())
	tcp := muxer.Match(cmux.Any())

	s := server.NewRtmpServer(
		server.WithConnBufferSize(cfg.Server.ConnBufferSize),
		server.WithAutoCreateAppOrChannel(cfg.Server.AutoCreate),
	)
	for _, ch := range cfg.Channels {
		s.GetOrNewChannelWithApp(ch.App, ch.Name)
	}
	go s.Serve(tcp)

	if flags.Dev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	e := gin.Default()
	utils.Cors(e)
	e.GET("/:app/*channel", func(c *gin.Context) {
		appName := c.Param("app")
		channelStr := strings.Trim(c.Param("channel"), "/")
		fileExt := path.Ext(channelStr)
		channelName := strings.TrimSuffix(channelStr, fileExt)
		if fileExt != ".flv" {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		channel, err := s.GetChannelWithApp(appName, channelName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}

		if websocket.IsWebSocketUpgrade(c.Request) {
			conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
			if err != nil {
				return
			}
			ws := wsflv.NewWriter(conn)
			defer ws.Close()
			w := httpflv.NewHttpFLVWriter(ws)
			defer w.Close()
			if err := channel.AddPlayer(w); err != nil {
				return
			}
			_ = w.SendPacket(c.Request.Context())
			return
		}

		c.Header("Content-Type", "video/x-flv")
		w := httpflv.NewHttpFLVWriter(c.Writer)
		defer w.Close()
		if err := channel.AddPlayer(w); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		_ = w.SendPacket(c.Request.Context())
	})
	go http.Serve(httpl, e.Handler())

	if err := muxer.Serve(); err != nil {
		logrus.Fatalf("serve: %v", err)
	}
}

func init() {
	RootCmd.AddCommand(ServerCmd)
	ServerCmd.Flags().StringVarP(&flags.Listen, "listen", "l", "127.0.0.1", "address to listen on")
	ServerCmd.Flags().Uint16VarP(&flags.Port, "port", "p", 1935, "port to listen on")
	ServerCmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "", "yaml config path")
}
