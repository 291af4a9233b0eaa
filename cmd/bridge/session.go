package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/remote"
)

func newLoginCmd() *cobra.Command {
	var (
		email         string
		server        string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordStdin)
			if err != nil {
				return err
			}
			return withControl(cmd.Context(), func(ctl controller, agent bool) error {
				result, err := ctl.Login(cmd.Context(), email, password, server)
				var httpErr *remote.HTTPError
				switch {
				case errors.Is(err, license.ErrInactive):
					fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s, but the license is not active: %s\n", result.Email, result.License.Message)
					return nil
				case errors.As(err, &httpErr) && httpErr.Message != "":
					return fmt.Errorf("login failed: %s", httpErr.Message)
				case err != nil:
					return fmt.Errorf("login failed: %s", remote.Message(err))
				}
				if agent {
					fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (license active). The running agent is polling.\n", result.Email)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (license active). Start the agent with: bridge run\n", result.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&server, "server", "", "server URL (default https://industria.app)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func readPassword(in io.Reader, prompt io.Writer, fromStdin bool) (string, error) {
	if f, ok := in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(data), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				if err := ctl.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session, license and device status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd.Context(), func(ctl controller, agent bool) error {
				view, err := ctl.Status(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), view)
				}
				settings, err := ctl.Config(cmd.Context())
				if err != nil {
					return err
				}

				session := "Not connected"
				if view.Connected {
					session = "Connected: " + view.UserEmail
				}
				agentLine := "not running"
				if agent {
					agentLine = "running (" + pollingLabel(view.Polling) + ")"
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Server:    %s\n", settings.ServerURL)
				fmt.Fprintf(out, "Session:   %s\n", session)
				fmt.Fprintf(out, "License:   %s\n", licenseLine(license.State{Status: license.Status(view.LicenseStatus), Message: view.LicenseMessage}))
				fmt.Fprintf(out, "Agent:     %s\n", agentLine)
				fmt.Fprintf(out, "Polling:   every %d ms\n", settings.PollingInterval)
				fmt.Fprintf(out, "Devices:   %d (%d with a folder)\n", len(settings.Machines), configured(settings.Machines))
				fmt.Fprintf(out, "Version:   %s\n", view.CurrentVersion)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newLicenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "license",
		Short: "Check the account license now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				st, err := ctl.CheckLicense(cmd.Context())
				if err != nil {
					return notLoggedIn(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), licenseLine(st))
				if st.Status == license.StatusError {
					return errors.New("license check failed")
				}
				return nil
			})
		},
	}
}

func pollingLabel(polling bool) string {
	if polling {
		return "polling"
	}
	return "idle"
}

func licenseLine(st license.State) string {
	if st.Message == "" {
		return string(st.Status)
	}
	return fmt.Sprintf("%s (%s)", st.Status, st.Message)
}
