package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/config"
	"github.com/feelsunbreeze/student_dashboard/internal/dashboard"
	"github.com/feelsunbreeze/student_dashboard/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	// stdout carries the tables, so logs go to stderr
	log, err := logger.New("dashboard_cli", os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	ws, err := dashboard.FromConfig(cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	cli := &commandLine{
		ws:   ws,
		auth: dashboard.NewIdentity(cfg, log),
		out:  os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(RED).Render("error: "+err.Error()))
		os.Exit(1)
	}
}
