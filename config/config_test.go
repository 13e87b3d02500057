package config

import (
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server: {}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != "127.0.0.1" {
		t.Errorf("listen=%q", cfg.Server.Listen)
	}
	if cfg.Server.Port != 1935 {
		t.Errorf("port=%d", cfg.Server.Port)
	}
	if cfg.Server.ConnBufferSize != 4096 {
		t.Errorf("conn_buffer_size=%d", cfg.Server.ConnBufferSize)
	}
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  listen: 0.0.0.0
  port: 1936
  auto_create: true
channels:
  - app: live
    name: main
  - app: live
    name: backup
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != "0.0.0.0" || cfg.Server.Port != 1936 {
		t.Errorf("server=%+v", cfg.Server)
	}
	if !cfg.Server.AutoCreate {
		t.Error("auto_create not set")
	}
	if len(cfg.Channels) != 2 || cfg.Channels[1].Name != "backup" {
		t.Errorf("channels=%+v", cfg.Channels)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("server:\n  bogus: 1\n")); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestParseRejectsUnnamedChannel(t *testing.T) {
	if _, err := Parse([]byte("channels:\n  - app: live\n")); err == nil {
		t.Error("channel without name accepted")
	}
}
