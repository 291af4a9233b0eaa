package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/industria/bridge/internal/config"
)

func TestAgentFile_WriteReadRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agent.json")
	info := AgentInfo{PID: 4242, Addr: "127.0.0.1:47455", Version: "1.2.3", Started: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	if err := writeAgentFile(path, info); err != nil {
		t.Fatalf("writeAgentFile: %v", err)
	}
	got, err := ReadAgentFile(path)
	if err != nil {
		t.Fatalf("ReadAgentFile: %v", err)
	}
	if got.PID != info.PID || got.Addr != info.Addr || got.Version != info.Version || !got.Started.Equal(info.Started) {
		t.Fatalf("read %+v, want %+v", got, info)
	}

	if err := removeAgentFile(path, 1); err != nil {
		t.Fatalf("removeAgentFile other pid: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file of another agent was removed: %v", err)
	}
	if err := removeAgentFile(path, 4242); err != nil {
		t.Fatalf("removeAgentFile: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("agent file still present: %v", err)
	}
	if err := removeAgentFile(path, 4242); err != nil {
		t.Fatalf("removing a missing file: %v", err)
	}
}

func TestFindAgent(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			_, _ = w.Write([]byte("ok\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer live.Close()
	dead := httptest.NewServer(http.NotFoundHandler())
	deadAddr := strings.TrimPrefix(dead.URL, "http://")
	dead.Close()

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "no file", wantErr: true},
		{name: "garbage", content: "{not json", wantErr: true},
		{name: "stale address", content: `{"pid":1,"addr":"` + deadAddr + `"}`, wantErr: true},
		{name: "live agent", content: `{"pid":7,"addr":"` + strings.TrimPrefix(live.URL, "http://") + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.Config{StorePath: filepath.Join(dir, "config.toml")}
			if tt.content != "" {
				if err := os.WriteFile(cfg.AgentFilePath(), []byte(tt.content), 0o600); err != nil {
					t.Fatalf("write: %v", err)
				}
			}
			client, info, err := FindAgent(context.Background(), cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrNoAgent) || client != nil {
					t.Fatalf("FindAgent = %v, %v; want ErrNoAgent", client, err)
				}
				return
			}
			if err != nil || client == nil || info.PID != 7 {
				t.Fatalf("FindAgent = %v, %+v, %v", client, info, err)
			}
		})
	}
}
