package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/dashboard"
	"github.com/feelsunbreeze/student_dashboard/internal/identity"
	"github.com/feelsunbreeze/student_dashboard/internal/report"
)

// commandBudget bounds one background command including all retries.
const commandBudget = 90 * time.Second

type authService interface {
	SignUp(ctx context.Context, email, password, displayName string) (identity.User, error)
	SignIn(ctx context.Context, email, password string) (identity.User, error)
	SendPasswordReset(ctx context.Context, email string) error
	ResendVerification(ctx context.Context, idToken string) error
	RefreshStatus(ctx context.Context, u identity.User) (identity.User, error)
}

func signInCmd(auth authService, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandBudget)
		defer cancel()
		u, err := auth.SignIn(ctx, email, password)
		return AuthResultMsg{Action: actionSignIn, User: u, Error: err}
	}
}

func signUpCmd(auth authService, email, password, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandBudget)
		defer cancel()
		u, err := auth.SignUp(ctx, email, password, name)
		return AuthResultMsg{Action: actionSignUp, User: u, Error: err}
	}
}

func refreshStatusCmd(auth authService, u identity.User) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandBudget)
		defer cancel()
		next, err := auth.RefreshStatus(ctx, u)
		return AuthResultMsg{Action: actionRefresh, User: next, Error: err}
	}
}

func actionCmd(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandBudget)
		defer cancel()
		return ActionDoneMsg{Action: action, Error: fn(ctx)}
	}
}

func loadCmd(ws *dashboard.Workspace, paths []string) tea.Cmd {
	return func() tea.Msg {
		table, err := ws.LoadFiles(context.Background(), paths)
		return RosterLoadedMsg{Table: table, Paths: paths, Error: err}
	}
}

// exportCmd renders every export before writing any file, so a failure
// leaves no partial report behind.
func exportCmd(dir string, exports []report.Export) tea.Cmd {
	return func() tea.Msg {
		data := make([][]byte, len(exports))
		for i, e := range exports {
			b, err := e.Bytes()
			if err != nil {
				return ExportDoneMsg{Error: errors.Wrapf(err, "render %s", e.FileName)}
			}
			data[i] = b
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ExportDoneMsg{Error: errors.Wrap(err, "create output directory")}
		}
		var paths []string
		for i, e := range exports {
			path := filepath.Join(dir, e.FileName)
			if err := os.WriteFile(path, data[i], 0o644); err != nil {
				return ExportDoneMsg{Paths: paths, Error: errors.Wrapf(err, "write %s", path)}
			}
			paths = append(paths, path)
		}
		return ExportDoneMsg{Paths: paths}
	}
}
