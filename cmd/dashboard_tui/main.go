package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/feelsunbreeze/student_dashboard/internal/config"
	"github.com/feelsunbreeze/student_dashboard/internal/dashboard"
	"github.com/feelsunbreeze/student_dashboard/internal/logger"
)

func StartTUI(cfg *config.Config, logPath, outDir string) error {
	var out io.Writer = io.Discard
	if logPath != "" {
		// the terminal belongs to the UI, so logs go to a file
		f, err := tea.LogToFile(logPath, "")
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	log, err := logger.New("dashboard_tui", out, cfg.LogLevel)
	if err != nil {
		return err
	}

	ws, err := dashboard.FromConfig(cfg, log)
	if err != nil {
		return err
	}
	auth := dashboard.NewIdentity(cfg, log)

	log.Info("starting", "model", ws.Model.Name, "scheme", ws.Scheme.Name, "emulator", cfg.EmulatorHost != "")
	p := tea.NewProgram(NewModel(auth, ws, log, outDir), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func main() {
	logPath := flag.String("log", "dashboard_tui.log", "log file (empty disables logging)")
	outDir := flag.String("out", "reports", "directory for exported reports")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	if err := StartTUI(cfg, *logPath, *outDir); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
