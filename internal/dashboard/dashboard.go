// Package dashboard ties the pieces together for the front ends: it turns
// uploads into a normalized table and runs predictions with the configured
// model, so the TUI, CLI and HTTP server behave the same.
package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/config"
	"github.com/feelsunbreeze/student_dashboard/internal/grading"
	"github.com/feelsunbreeze/student_dashboard/internal/identity"
	"github.com/feelsunbreeze/student_dashboard/internal/logger"
	"github.com/feelsunbreeze/student_dashboard/internal/predictor"
	"github.com/feelsunbreeze/student_dashboard/internal/roster"
	"github.com/feelsunbreeze/student_dashboard/internal/sheet"
)

type Workspace struct {
	Aliases roster.Aliases
	MaxMark float64
	Scheme  grading.Scheme
	Model   predictor.Model
	Log     logger.Logger
}

// Default is a workspace with the stock alias table, grading scheme and
// model, and no logging.
func Default() *Workspace {
	return &Workspace{
		Aliases: roster.AppAliases,
		Scheme:  grading.Standard,
		Model:   predictor.Standard,
		Log:     logger.Nop(),
	}
}

// FromConfig resolves the named settings in cfg.
func FromConfig(cfg *config.Config, log logger.Logger) (*Workspace, error) {
	aliases, ok := roster.LookupAliases(cfg.Aliases)
	if !ok {
		return nil, &config.Error{Keys: []string{"aliases"}, Err: errors.Errorf("unknown alias table %q", cfg.Aliases)}
	}
	model, ok := predictor.Lookup(cfg.PredictorModel)
	if !ok {
		return nil, &config.Error{Keys: []string{"predictor_model"}, Err: errors.Errorf("unknown predictor model %q", cfg.PredictorModel)}
	}
	scheme := model.Scheme
	if cfg.GradingScheme != "" {
		if scheme, ok = grading.Lookup(cfg.GradingScheme); !ok {
			return nil, &config.Error{Keys: []string{"grading_scheme"}, Err: errors.Errorf("unknown grading scheme %q", cfg.GradingScheme)}
		}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Workspace{
		Aliases: aliases,
		MaxMark: cfg.MaxMark,
		Scheme:  scheme,
		Model:   model.WithScheme(scheme),
		Log:     log,
	}, nil
}

// NewIdentity builds the identity client described by cfg: emulator or
// production endpoints, per-attempt timeout and retry budget.
func NewIdentity(cfg *config.Config, log logger.Logger) *identity.Client {
	policy := identity.DefaultRetryPolicy()
	if cfg.AuthRetries > 0 {
		policy.MaxAttempts = cfg.AuthRetries
	}
	opts := []identity.Option{
		identity.WithEndpoints(identity.EndpointsFor(cfg.EmulatorHost)),
		identity.WithRetryPolicy(policy),
	}
	if cfg.AuthTimeout > 0 {
		opts = append(opts, identity.WithTimeout(cfg.AuthTimeout))
	}
	if log != nil {
		opts = append(opts, identity.WithLogger(log.With("component", "identity")))
	}
	return identity.New(cfg.Provider.APIKey, opts...)
}

// Load parses and normalizes uploads. Cell warnings are logged and kept on
// the returned table.
func (ws *Workspace) Load(ctx context.Context, uploads []sheet.Upload) (*roster.Table, error) {
	frame, err := sheet.LoadAll(ctx, uploads)
	if err != nil {
		return nil, err
	}
	return ws.normalize(frame, len(uploads))
}

func (ws *Workspace) LoadFiles(ctx context.Context, paths []string) (*roster.Table, error) {
	frame, err := sheet.LoadFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	return ws.normalize(frame, len(paths))
}

func (ws *Workspace) normalize(frame roster.Frame, files int) (*roster.Table, error) {
	table, err := roster.Normalize(frame, roster.WithAliases(ws.Aliases), roster.WithMaxMark(ws.MaxMark))
	if err != nil {
		ws.Log.Warn("upload rejected", "files", files, "err", err)
		return nil, err
	}
	for _, w := range table.Warnings {
		ws.Log.Warn("cell flagged", "row", w.Row+1, "column", w.Column, "value", w.Value, "reason", w.Reason)
	}
	ws.Log.Info("roster loaded", "files", files, "students", table.Len(), "classes", len(table.Classes()), "warnings", len(table.Warnings))
	return table, nil
}

// Predict validates in and scores it with the workspace model.
func (ws *Workspace) Predict(in predictor.Input) (predictor.Result, error) {
	if err := in.Validate(); err != nil {
		return predictor.Result{}, err
	}
	return ws.Model.Predict(in)
}
