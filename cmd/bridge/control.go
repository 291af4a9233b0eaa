package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/industria/bridge/internal/app"
	"github.com/industria/bridge/internal/bridge"
	"github.com/industria/bridge/internal/config"
	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/remote"
	"github.com/industria/bridge/internal/statusapi"
)

// controller is what one-shot commands drive. *statusapi.Client reaches a
// running agent; localController wraps a bridge built for the command.
type controller interface {
	Status(ctx context.Context) (statusapi.StatusView, error)
	Config(ctx context.Context) (bridge.Settings, error)
	Login(ctx context.Context, email, password, serverURL string) (bridge.LoginResult, error)
	Logout(ctx context.Context) error
	CheckLicense(ctx context.Context) (license.State, error)
	SyncDevices(ctx context.Context) (devices.Map, error)
	SetFolder(ctx context.Context, id, path string) (string, error)
	SetConfig(ctx context.Context, patch bridge.SettingsPatch) (bridge.Settings, error)
	CheckUpdates(ctx context.Context) (bridge.UpdateInfo, error)
	DownloadUpdate(ctx context.Context) (string, error)
}

// withControl hands fn the running agent when one answers, so the command
// changes the agent's state instead of writing the store behind its back.
// Otherwise the bridge is built locally. agent reports which one fn got.
func withControl(ctx context.Context, fn func(ctl controller, agent bool) error) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if client, _, err := app.FindAgent(ctx, cfg); err == nil {
		return fn(client, true)
	}
	return withApp(func(a *app.App) error {
		return fn(localController{b: a.Bridge}, false)
	})
}

type localController struct {
	b *bridge.Bridge
}

func (l localController) Status(ctx context.Context) (statusapi.StatusView, error) {
	if l.b.Token() != "" {
		l.b.CheckLicense(ctx)
	}
	return statusapi.NewStatusView(l.b.Status()), nil
}

func (l localController) Config(context.Context) (bridge.Settings, error) {
	return l.b.Config(), nil
}

func (l localController) Login(ctx context.Context, email, password, serverURL string) (bridge.LoginResult, error) {
	return l.b.Login(ctx, email, password, serverURL)
}

func (l localController) Logout(context.Context) error {
	return l.b.Logout()
}

func (l localController) CheckLicense(ctx context.Context) (license.State, error) {
	if l.b.Token() == "" {
		return license.State{}, remote.ErrUnauthenticated
	}
	return l.b.CheckLicense(ctx), nil
}

func (l localController) SyncDevices(ctx context.Context) (devices.Map, error) {
	if l.b.Token() == "" {
		return nil, remote.ErrUnauthenticated
	}
	return l.b.SyncDevices(ctx), nil
}

func (l localController) SetFolder(_ context.Context, id, path string) (string, error) {
	folder := ""
	if strings.TrimSpace(path) != "" {
		resolved, err := l.b.SelectFolder(path)
		if err != nil {
			return "", err
		}
		folder = resolved
	}
	if err := l.b.SetDeviceFolder(id, folder); err != nil {
		return "", err
	}
	return folder, nil
}

func (l localController) SetConfig(_ context.Context, patch bridge.SettingsPatch) (bridge.Settings, error) {
	if err := l.b.SetConfig(patch); err != nil {
		return bridge.Settings{}, err
	}
	return l.b.Config(), nil
}

func (l localController) CheckUpdates(ctx context.Context) (bridge.UpdateInfo, error) {
	return l.b.CheckUpdates(ctx)
}

func (l localController) DownloadUpdate(ctx context.Context) (string, error) {
	return l.b.DownloadUpdate(ctx)
}

func notLoggedIn(err error) error {
	if errors.Is(err, remote.ErrUnauthenticated) {
		return errors.New("not logged in")
	}
	return err
}
