package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feelsunbreeze/student_dashboard/internal/dashboard"
	"github.com/feelsunbreeze/student_dashboard/internal/identity"
	"github.com/feelsunbreeze/student_dashboard/internal/predictor"
	"github.com/feelsunbreeze/student_dashboard/internal/report"
)

type fakeAuth struct {
	err      error
	email    string
	password string
	name     string
}

func (f *fakeAuth) SignUp(_ context.Context, email, password, name string) (identity.User, error) {
	f.email, f.password, f.name = email, password, name
	if f.err != nil {
		return identity.User{}, f.err
	}
	return identity.User{LocalID: "new", Email: email, DisplayName: name}, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (identity.User, error) {
	f.email, f.password = email, password
	if f.err != nil {
		return identity.User{}, f.err
	}
	return identity.User{LocalID: "u1", Email: email, DisplayName: "Asha", Verified: true}, nil
}

func (f *fakeAuth) SendPasswordReset(_ context.Context, email string) error {
	f.email = email
	return f.err
}

func setup(t *testing.T, auth authService) (*commandLine, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &commandLine{ws: dashboard.Default(), auth: auth, out: out}, out
}

// run prepends the program name the way os.Args carries it.
func run(cli *commandLine, args ...string) error {
	return cli.run(append([]string{"dashboard_cli"}, args...))
}

func withPassword(t *testing.T, pwd string) {
	t.Helper()
	prev := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = prev })
}

func writeSheets(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte(
		"Class,Reg.no,Name,OOPs C++,DSA C++,Mathematics,Applied Data Science,Embedded Systems,Cloud Management\n"+
			"A,1,Asha,90,80,70,60,50,40\n"+
			"A,2,Bilal,30,50,60,60,60,60\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("Class,Reg.no,Name,Mathematics\nB,3,Chen,75\n"), 0o644))
	return []string{a, b}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command"},
		{name: "unknown command", args: []string{"lol"}},
		{name: "analyze without files", args: []string{"analyze"}},
		{name: "compare without files", args: []string{"compare"}},
		{name: "export without files", args: []string{"export", "-kind", "top3"}},
		{name: "help flag", args: []string{"predict", "-h"}},
		{name: "signin without email", args: []string{"signin"}},
		{name: "reset without email", args: []string{"reset"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _ := setup(t, &fakeAuth{})
			assert.ErrorIs(t, run(cli, tt.args...), errHelp)
		})
	}
}

func TestAnalyze(t *testing.T) {
	cli, out := setup(t, nil)
	paths := writeSheets(t)

	require.NoError(t, run(cli, append([]string{"analyze"}, paths...)...))
	text := out.String()
	assert.Contains(t, text, "Class A")
	assert.Contains(t, text, "Students: 2")
	assert.Contains(t, text, "1st")
	assert.Contains(t, text, "Asha")
	assert.Contains(t, text, "Weak students (<40)")
	assert.Contains(t, text, "Bilal")
	assert.NotContains(t, text, "Chen")
}

func TestAnalyze_ClassAndQuery(t *testing.T) {
	paths := writeSheets(t)

	cli, out := setup(t, nil)
	require.NoError(t, run(cli, append([]string{"analyze", "-class", "B"}, paths...)...))
	assert.Contains(t, out.String(), "Class B")
	assert.Contains(t, out.String(), "Chen")

	cli, out = setup(t, nil)
	require.NoError(t, run(cli, append([]string{"analyze", "-q", "zed"}, paths...)...))
	assert.Contains(t, out.String(), `No students in class A match "zed".`)

	cli, _ = setup(t, nil)
	err := run(cli, append([]string{"analyze", "-class", "Z"}, paths...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `class "Z" not found`)
}

func TestAnalyze_MissingFile(t *testing.T) {
	cli, _ := setup(t, nil)
	assert.Error(t, run(cli, "analyze", filepath.Join(t.TempDir(), "missing.csv")))
}

func TestCompare(t *testing.T) {
	cli, out := setup(t, nil)
	require.NoError(t, run(cli, append([]string{"compare"}, writeSheets(t)...)...))
	text := out.String()
	assert.Contains(t, text, "Class comparison")
	assert.Contains(t, text, "Pass rate (%)")
	assert.Contains(t, text, "75.00")
}

func TestExport(t *testing.T) {
	paths := writeSheets(t)
	dir := filepath.Join(t.TempDir(), "out")

	cli, out := setup(t, nil)
	require.NoError(t, run(cli, append([]string{"export", "-out", dir}, paths...)...))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(report.Kinds()))
	assert.FileExists(t, filepath.Join(dir, "A_report.xlsx"))
	assert.FileExists(t, filepath.Join(dir, "class_pass_rate.xlsx"))
	assert.Contains(t, out.String(), "wrote "+filepath.Join(dir, "A_top3.xlsx"))
}

func TestExport_SingleKind(t *testing.T) {
	dir := t.TempDir()
	cli, _ := setup(t, nil)
	require.NoError(t, run(cli, append([]string{"export", "-class", "B", "-kind", "top3", "-out", dir}, writeSheets(t)...)...))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "B_top3.xlsx", entries[0].Name())
}

func TestExport_UnknownKindWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	cli, _ := setup(t, nil)
	err := run(cli, append([]string{"export", "-kind", "nope", "-out", dir}, writeSheets(t)...)...)
	assert.ErrorIs(t, err, report.ErrUnknownKind)
	assert.NoDirExists(t, dir)
}

func TestPredict(t *testing.T) {
	cli, out := setup(t, nil)
	require.NoError(t, run(cli, "predict", "-age", "16", "-absences", "5", "-study", "10"))
	assert.Equal(t, "Predicted final score: 64.85% (grade C, standard model)\n", out.String())

	cli, out = setup(t, nil)
	require.NoError(t, run(cli, "predict", "-model", "legacy", "-age", "16", "-absences", "0", "-study", "20", "-support", "Very High", "-sports"))
	assert.Contains(t, out.String(), "legacy model")
}

func TestPredict_Rejects(t *testing.T) {
	cli, _ := setup(t, nil)
	err := run(cli, "predict", "-age", "9")
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "age", verrs[0].Field())

	cli, _ = setup(t, nil)
	err = run(cli, "predict", "-study", "Inf")
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "study_hours", verrs[0].Field())

	cli, _ = setup(t, nil)
	err = run(cli, "predict", "-support", "Very High")
	var lerr *predictor.UnknownLevelError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "Very High", lerr.Value)

	cli, _ = setup(t, nil)
	err = run(cli, "predict", "-model", "fancy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown model "fancy"`)
}

func TestSignIn(t *testing.T) {
	withPassword(t, "hunter22")
	auth := &fakeAuth{}
	cli, out := setup(t, auth)

	require.NoError(t, run(cli, "signin", "-email", "asha@example.com"))
	assert.Equal(t, "asha@example.com", auth.email)
	assert.Equal(t, "hunter22", auth.password)
	assert.Contains(t, out.String(), "Signed in as Asha <asha@example.com>")
	assert.Contains(t, out.String(), "verified")
}

func TestSignIn_EmptyPassword(t *testing.T) {
	withPassword(t, "")
	auth := &fakeAuth{}
	cli, _ := setup(t, auth)

	assert.ErrorIs(t, run(cli, "signin", "-email", "asha@example.com"), errHelp)
	assert.Empty(t, auth.email)
}

func TestSignIn_ProviderError(t *testing.T) {
	withPassword(t, "wrong")
	cli, _ := setup(t, &fakeAuth{err: &identity.ProviderError{Status: 400, Code: "INVALID_LOGIN_CREDENTIALS"}})

	err := run(cli, "signin", "-email", "asha@example.com")
	require.Error(t, err)
	assert.Equal(t, "Incorrect email or password.", err.Error())
}

func TestSignIn_NotConfigured(t *testing.T) {
	withPassword(t, "hunter22")
	cli, _ := setup(t, nil)
	err := run(cli, "signin", "-email", "asha@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSignUp(t *testing.T) {
	withPassword(t, "hunter22")
	auth := &fakeAuth{}
	cli, out := setup(t, auth)

	require.NoError(t, run(cli, "signup", "-email", "dara@example.com", "-name", "  Dara "))
	assert.Equal(t, "Dara", auth.name)
	assert.Contains(t, out.String(), "Account created!")
	assert.Contains(t, out.String(), "not verified")
}

func TestReset(t *testing.T) {
	auth := &fakeAuth{}
	cli, out := setup(t, auth)

	require.NoError(t, run(cli, "reset", "-email", "asha@example.com"))
	assert.Equal(t, "asha@example.com", auth.email)
	assert.Equal(t, "Password reset email sent.\n", out.String())
}
