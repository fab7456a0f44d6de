package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/feelsunbreeze/student_dashboard/internal/analysis"
	"github.com/feelsunbreeze/student_dashboard/internal/dashboard"
	"github.com/feelsunbreeze/student_dashboard/internal/identity"
	"github.com/feelsunbreeze/student_dashboard/internal/predictor"
	"github.com/feelsunbreeze/student_dashboard/internal/report"
	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

const authBudget = 90 * time.Second

type authService interface {
	SignUp(ctx context.Context, email, password, displayName string) (identity.User, error)
	SignIn(ctx context.Context, email, password string) (identity.User, error)
	SendPasswordReset(ctx context.Context, email string) error
}

type commandLine struct {
	ws   *dashboard.Workspace
	auth authService
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  analyze [-class CLASS] [-q NAME] FILE...  - class summary, averages, top 3 and weak marks")
	fmt.Fprintln(cli.out, "  compare FILE...                            - subject averages, strength and pass rate per class")
	fmt.Fprintln(cli.out, "  export [-class CLASS] [-kind KIND] [-out DIR] FILE...  - write .xlsx reports")
	fmt.Fprintln(cli.out, "  predict [-model NAME] -age N -absences N -study N [...] - estimate a final score")
	fmt.Fprintln(cli.out, "  signin -email EMAIL                        - check credentials, the password is prompted")
	fmt.Fprintln(cli.out, "  signup -email EMAIL [-name NAME]           - create an account, the password is prompted")
	fmt.Fprintln(cli.out, "  reset -email EMAIL                         - send a password reset email")
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "analyze":
		return cli.analyzeCmd(args[2:])
	case "compare":
		return cli.compareCmd(args[2:])
	case "export":
		return cli.exportCmd(args[2:])
	case "predict":
		return cli.predictCmd(args[2:])
	case "signin":
		return cli.signInCmd(args[2:])
	case "signup":
		return cli.signUpCmd(args[2:])
	case "reset":
		return cli.resetCmd(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) load(files []string) (*roster.Table, error) {
	table, err := cli.ws.LoadFiles(context.Background(), files)
	if err != nil {
		return nil, err
	}
	for _, w := range table.Warnings {
		fmt.Fprintln(cli.out, "warning:", w.String())
	}
	return table, nil
}

func pickClass(table *roster.Table, class string) (string, error) {
	classes := table.Classes()
	if len(classes) == 0 {
		return "", errors.New("no classes in the uploaded files")
	}
	if class == "" {
		return classes[0], nil
	}
	for _, c := range classes {
		if c == class {
			return c, nil
		}
	}
	return "", errors.Errorf("class %q not found (have %s)", class, strings.Join(classes, ", "))
}

func (cli *commandLine) analyzeCmd(args []string) error {
	fs := cli.flagSet("analyze")
	class := fs.String("class", "", "Class to analyze. Defaults to the first class in the files.")
	query := fs.String("q", "", "Only students whose name contains this text.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errHelp
	}

	table, err := cli.load(fs.Args())
	if err != nil {
		return err
	}
	c, err := pickClass(table, *class)
	if err != nil {
		return err
	}
	r := analysis.Analyze(table, c, *query)
	if r.Empty() {
		fmt.Fprintf(cli.out, "No students in class %s match %q.\n", c, *query)
		return nil
	}
	printReport(cli.out, r)
	return nil
}

func (cli *commandLine) compareCmd(args []string) error {
	fs := cli.flagSet("compare")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errHelp
	}

	table, err := cli.load(fs.Args())
	if err != nil {
		return err
	}
	printComparison(cli.out, analysis.CompareClasses(table))
	return nil
}

func (cli *commandLine) exportCmd(args []string) error {
	fs := cli.flagSet("export")
	class := fs.String("class", "", "Class to export. Defaults to the first class in the files.")
	kind := fs.String("kind", "all", "One of: all, "+strings.Join(report.Kinds(), ", "))
	dir := fs.String("out", ".", "Output directory.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errHelp
	}

	kinds := report.Kinds()
	if *kind != "all" {
		kinds = []string{*kind}
	}

	table, err := cli.load(fs.Args())
	if err != nil {
		return err
	}
	c, err := pickClass(table, *class)
	if err != nil {
		return err
	}
	r := analysis.Analyze(table, c, "")
	cmp := analysis.CompareClasses(table)

	// render everything first so a bad kind writes nothing
	files := make(map[string][]byte, len(kinds))
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		e, err := report.Build(k, r, cmp)
		if err != nil {
			return err
		}
		data, err := e.Bytes()
		if err != nil {
			return errors.Wrapf(err, "render %s", e.FileName)
		}
		files[e.FileName] = data
		names = append(names, e.FileName)
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	for _, name := range names {
		path := filepath.Join(*dir, name)
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
		fmt.Fprintln(cli.out, "wrote", path)
	}
	return nil
}

func (cli *commandLine) predictCmd(args []string) error {
	fs := cli.flagSet("predict")
	modelName := fs.String("model", "", "Predictor model: "+strings.Join(predictor.Names(), ", ")+". Defaults to the configured one.")
	age := fs.Int("age", 16, "Age in years (10-25).")
	absences := fs.Float64("absences", 0, "Number of absences.")
	study := fs.Float64("study", 0, "Weekly study hours.")
	gender := fs.String("gender", "", "Gender. Accepted but not scored.")
	education := fs.String("education", "High School", "Parental education level.")
	support := fs.String("support", "Moderate", "Parental support level.")
	ethnicity := fs.String("ethnicity", "", "Ethnicity group. Accepted but not scored.")
	sports := fs.Bool("sports", false, "Takes part in sports.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}

	model := cli.ws.Model
	if *modelName != "" {
		m, ok := predictor.Lookup(*modelName)
		if !ok {
			return errors.Errorf("unknown model %q (have %s)", *modelName, strings.Join(predictor.Names(), ", "))
		}
		model = m
	}

	in := predictor.Input{
		Age:        *age,
		Gender:     *gender,
		Absences:   *absences,
		StudyHours: *study,
		Education:  *education,
		Support:    *support,
		Ethnicity:  *ethnicity,
		Sports:     *sports,
	}
	if err := in.Validate(); err != nil {
		return err
	}
	res, err := model.Predict(in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Predicted final score: %.2f%% (grade %s, %s model)\n", res.Percentage, res.Grade, res.Model)
	return nil
}

// readPassword prompts for a password without echo. An empty answer is
// treated as a usage error.
func (cli *commandLine) readPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) requireAuth() error {
	if cli.auth == nil {
		return errors.New("identity provider is not configured")
	}
	return nil
}

func (cli *commandLine) signInCmd(args []string) error {
	fs := cli.flagSet("signin")
	email := fs.String("email", "", "Account email. The password will be prompted next.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}
	if err := cli.requireAuth(); err != nil {
		return err
	}
	pwd, err := cli.readPassword(fs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), authBudget)
	defer cancel()
	u, err := cli.auth.SignIn(ctx, *email, pwd)
	if err != nil {
		return errors.New(identity.Message(err))
	}
	printUser(cli.out, u)
	return nil
}

func (cli *commandLine) signUpCmd(args []string) error {
	fs := cli.flagSet("signup")
	email := fs.String("email", "", "Account email. The password will be prompted next.")
	name := fs.String("name", "", "Display name. Defaults to the part of the email before @.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}
	if err := cli.requireAuth(); err != nil {
		return err
	}
	pwd, err := cli.readPassword(fs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), authBudget)
	defer cancel()
	u, err := cli.auth.SignUp(ctx, *email, pwd, strings.TrimSpace(*name))
	if err != nil {
		return errors.New(identity.Message(err))
	}
	fmt.Fprintln(cli.out, "Account created! Check your inbox to verify your email.")
	printUser(cli.out, u)
	return nil
}

func (cli *commandLine) resetCmd(args []string) error {
	fs := cli.flagSet("reset")
	email := fs.String("email", "", "Account email.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}
	if err := cli.requireAuth(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), authBudget)
	defer cancel()
	if err := cli.auth.SendPasswordReset(ctx, *email); err != nil {
		return errors.New(identity.Message(err))
	}
	fmt.Fprintln(cli.out, "Password reset email sent.")
	return nil
}
