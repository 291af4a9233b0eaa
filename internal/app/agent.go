package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/industria/bridge/internal/config"
	"github.com/industria/bridge/internal/statusapi"
)

// ErrNoAgent means no running agent answered on the address in the agent
// file.
var ErrNoAgent = errors.New("no running agent")

// AgentInfo is what a running agent records in its agent file.
type AgentInfo struct {
	PID     int       `json:"pid"`
	Addr    string    `json:"addr"`
	Version string    `json:"version"`
	Started time.Time `json:"started"`
}

const healthTimeout = 2 * time.Second

// ReadAgentFile decodes the agent file at path.
func ReadAgentFile(path string) (AgentInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentInfo{}, err
	}
	var info AgentInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return AgentInfo{}, fmt.Errorf("decode agent file: %w", err)
	}
	return info, nil
}

func writeAgentFile(path string, info AgentInfo) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create agent dir: %w", err)
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode agent file: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".agent-*.json")
	if err != nil {
		return fmt.Errorf("create temp agent file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write agent file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close agent file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace agent file: %w", err)
	}
	return nil
}

// removeAgentFile deletes the file only while it still names pid, so an
// agent that lost a start race never removes the winner's file.
func removeAgentFile(path string, pid int) error {
	info, err := ReadAgentFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil && info.PID != pid {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// FindAgent returns a client for the agent recorded beside the store, after
// checking that it answers. A missing, unreadable or stale file yields
// ErrNoAgent.
func FindAgent(ctx context.Context, cfg config.Config) (*statusapi.Client, AgentInfo, error) {
	info, err := ReadAgentFile(cfg.AgentFilePath())
	if err != nil || info.Addr == "" {
		return nil, AgentInfo{}, ErrNoAgent
	}
	client := statusapi.NewClient(info.Addr, nil)

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		return nil, info, ErrNoAgent
	}
	return client, info, nil
}
