package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/feelsunbreeze/student_dashboard/internal/analysis"
	"github.com/feelsunbreeze/student_dashboard/internal/dashboard"
	"github.com/feelsunbreeze/student_dashboard/internal/identity"
	"github.com/feelsunbreeze/student_dashboard/internal/logger"
	"github.com/feelsunbreeze/student_dashboard/internal/predictor"
	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

const (
	WHITE       = lipgloss.Color("#FFFFFF")
	BLUE        = lipgloss.Color("#0043a8")
	GREY        = lipgloss.Color("#626262")
	LAVENDER    = lipgloss.Color("#B8B8FF")
	GREEN       = lipgloss.Color("#50FA7B")
	LIGHT_GREEN = lipgloss.Color("#B9FBC0")
	PINK        = lipgloss.Color("#FFD1DC")
	RED         = lipgloss.Color("#FF5555")
	YELLOW      = lipgloss.Color("#F1FA8C")
	LIGHT_BLUE  = lipgloss.Color("#8BE9FD")
	TURQUOISE   = lipgloss.Color("#98F5E1")
	SILVER      = lipgloss.Color("#A9B2D8")
)

type ViewType int

const (
	LoginView ViewType = iota
	SignUpView
	ResetView
	LoadingView
	HomeView
	PredictView
	TeamView
)

type Tab int

const (
	TabAverages Tab = iota
	TabTop
	TabWeak
	TabStudents
	TabCompare
	TabHistogram
	tabCount
)

func (t Tab) String() string {
	return [...]string{"Averages", "Top 3", "Weak", "Students", "Compare", "Distribution"}[t]
}

const (
	actionSignIn  = "signin"
	actionSignUp  = "signup"
	actionReset   = "reset"
	actionResend  = "resend"
	actionRefresh = "refresh"
)

type AuthResultMsg struct {
	Action string
	User   identity.User
	Error  error
}

type ActionDoneMsg struct {
	Action string
	Error  error
}

type RosterLoadedMsg struct {
	Table *roster.Table
	Paths []string
	Error error
}

type ExportDoneMsg struct {
	Paths []string
	Error error
}

type editTarget int

const (
	editNone editTarget = iota
	editFiles
	editSearch
)

type LoadingState struct {
	Reason     string
	HelpText   string
	BottomText string
	// Back is where Esc returns to. The pending command's result is ignored
	// once the user has left.
	Back ViewType
}

type model struct {
	width  int
	height int

	currentView  ViewType
	session      *identity.Session
	auth         authService
	ws           *dashboard.Workspace
	log          logger.Logger
	outDir       string
	spinner      spinner.Model
	loadingState LoadingState
	pending      string

	status    string
	statusErr bool

	showPassword bool
	loginForm    form
	signUpForm   form
	resetForm    form

	filesInput  form
	searchInput form
	editing     editTarget

	roster     *roster.Table
	classes    []string
	class      int
	report     analysis.ClassReport
	comparison []analysis.ClassComparison
	tab        Tab
	histogram  int
	grid       table.Model

	predictForm predictForm
	prediction  *predictor.Result
}

func NewModel(auth authService, ws *dashboard.Workspace, log logger.Logger, outDir string) model {
	s := spinner.New()
	s.Style = lipgloss.NewStyle().Foreground(BLUE)
	s.Spinner = spinner.Points

	if log == nil {
		log = logger.Nop()
	}
	m := model{
		currentView: LoginView,
		session:     identity.NewSession(),
		auth:        auth,
		ws:          ws,
		log:         log,
		outDir:      outDir,
		spinner:     s,
		loginForm:   newLoginForm(),
		signUpForm:  newSignUpForm(),
		resetForm:   newResetForm(),
		filesInput:  newFilesInput(),
		searchInput: newSearchInput(),
		predictForm: newPredictForm(ws.Model),
	}
	m.loginForm.focus(0)
	return m
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case AuthResultMsg:
		return m.handleAuthResult(msg)

	case ActionDoneMsg:
		if !m.settle(msg.Action) {
			return m, nil
		}
		if msg.Error != nil {
			m.setError(identity.Message(msg.Error))
			return m, nil
		}
		switch msg.Action {
		case actionReset:
			m.setStatus("Password reset email sent to " + m.resetForm.value(0) + ".")
		case actionResend:
			m.setStatus("Verification email sent again.")
		}

	case RosterLoadedMsg:
		if !m.settle("load") {
			return m, nil
		}
		if msg.Error != nil {
			m.log.Warn("roster load failed", "session", m.session.ID, "files", len(msg.Paths), "err", msg.Error)
			m.setError("Could not load spreadsheets: " + msg.Error.Error())
			cmd := m.startEditing(editFiles)
			return m, cmd
		}
		m.setRoster(msg.Table)
		m.setStatus(fmt.Sprintf("Loaded %d students from %d file(s).", msg.Table.Len(), len(msg.Paths)))
		if n := len(msg.Table.Warnings); n > 0 {
			m.setError(fmt.Sprintf("Loaded %d students with %d warning(s); see the log for details.", msg.Table.Len(), n))
		}

	case ExportDoneMsg:
		if !m.settle("export") {
			return m, nil
		}
		if msg.Error != nil {
			m.setError("Export failed: " + msg.Error.Error())
			return m, nil
		}
		m.setStatus("Saved " + strings.Join(msg.Paths, ", "))

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// settle clears the loading screen for action. It reports false when the
// user already left it, in which case the result is dropped.
func (m *model) settle(action string) bool {
	if m.currentView != LoadingView || m.pending != action {
		return false
	}
	m.currentView = m.loadingState.Back
	m.pending = ""
	return true
}

func (m model) handleAuthResult(msg AuthResultMsg) (tea.Model, tea.Cmd) {
	if !m.settle(msg.Action) {
		return m, nil
	}
	if msg.Error != nil {
		m.log.Info("identity call failed", "session", m.session.ID, "action", msg.Action, "err", msg.Error)
		m.setError(identity.Message(msg.Error))
		return m, nil
	}

	m.session.SetUser(msg.User)
	m.log.Info("identity call succeeded", "session", m.session.ID, "action", msg.Action, "user", msg.User.LocalID, "verified", msg.User.Verified)

	switch msg.Action {
	case actionSignIn:
		m.loginForm.reset()
		m.goHome()
		m.setStatus("Welcome, " + msg.User.DisplayName + ".")
		if m.roster == nil {
			cmd := m.startEditing(editFiles)
			return m, cmd
		}
	case actionSignUp:
		m.signUpForm.reset()
		m.session.Go(identity.RouteTeam)
		m.currentView = TeamView
		m.setStatus("Account created! We sent a verification email to " + msg.User.Email + ".")
	case actionRefresh:
		if msg.User.Verified {
			m.setStatus("Your email is verified.")
		} else {
			m.setError("Your email is not verified yet.")
		}
	}
	return m, nil
}

func (m model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.currentView {
	case LoginView:
		return m.handleLoginKeys(msg)
	case SignUpView:
		return m.handleSignUpKeys(msg)
	case ResetView:
		return m.handleResetKeys(msg)
	case LoadingView:
		return m.handleLoadingKeys(msg)
	case HomeView:
		return m.handleHomeKeys(msg)
	case PredictView:
		return m.handlePredictKeys(msg)
	case TeamView:
		return m.handleTeamKeys(msg)
	default:
		return m, nil
	}
}

func (m model) handleLoadingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.currentView = m.loadingState.Back
		m.pending = ""
	}
	return m, nil
}

func (m model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.showPassword = !m.showPassword
		m.loginForm.reveal(m.showPassword)
		m.signUpForm.reveal(m.showPassword)
		return m, nil
	case "ctrl+n":
		m.clearStatus()
		m.currentView = SignUpView
		cmd := m.signUpForm.focus(0)
		return m, cmd
	case "ctrl+r":
		m.clearStatus()
		m.resetForm.inputs[0].SetValue(m.loginForm.value(0))
		m.currentView = ResetView
		cmd := m.resetForm.focus(0)
		return m, cmd
	case "enter":
		if !m.loginForm.onLast() {
			cmd := m.loginForm.next()
			return m, cmd
		}
		email, password := m.loginForm.value(0), m.loginForm.inputs[1].Value()
		if email == "" || password == "" {
			m.setError("Enter your email and password.")
			return m, nil
		}
		m.startLoading(actionSignIn, "🔐 Logging in, please wait", "Authenticating with the identity provider", LoginView)
		return m, tea.Batch(m.spinner.Tick, signInCmd(m.auth, email, password))
	}
	var cmd tea.Cmd
	m.loginForm, cmd = m.loginForm.update(msg)
	return m, cmd
}

func (m model) handleSignUpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.clearStatus()
		m.currentView = LoginView
		cmd := m.loginForm.focus(0)
		return m, cmd
	case "enter":
		if !m.signUpForm.onLast() {
			cmd := m.signUpForm.next()
			return m, cmd
		}
		name, email, password := m.signUpForm.value(0), m.signUpForm.value(1), m.signUpForm.inputs[2].Value()
		if email == "" || password == "" {
			m.setError("Enter an email and a password.")
			return m, nil
		}
		m.startLoading(actionSignUp, "📝 Creating your account", "Registering with the identity provider", SignUpView)
		return m, tea.Batch(m.spinner.Tick, signUpCmd(m.auth, email, password, name))
	}
	var cmd tea.Cmd
	m.signUpForm, cmd = m.signUpForm.update(msg)
	return m, cmd
}

func (m model) handleResetKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.clearStatus()
		m.currentView = LoginView
		cmd := m.loginForm.focus(0)
		return m, cmd
	case "enter":
		email := m.resetForm.value(0)
		if email == "" {
			m.setError("Enter the email of your account.")
			return m, nil
		}
		m.startLoading(actionReset, "✉️ Sending reset email", "Asking the identity provider to send a reset link", ResetView)
		return m, tea.Batch(m.spinner.Tick, actionCmd(actionReset, func(ctx context.Context) error {
			return m.auth.SendPasswordReset(ctx, email)
		}))
	}
	var cmd tea.Cmd
	m.resetForm, cmd = m.resetForm.update(msg)
	return m, cmd
}

func (m model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing != editNone {
		return m.handleEditingKeys(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "o":
		cmd := m.startEditing(editFiles)
		return m, cmd
	case "/":
		if m.roster != nil {
			cmd := m.startEditing(editSearch)
			return m, cmd
		}
	case "left", "h":
		if m.class > 0 {
			m.class--
			m.analyze()
		}
	case "right", "l":
		if m.class < len(m.classes)-1 {
			m.class++
			m.analyze()
		}
	case "tab":
		m.tab = (m.tab + 1) % tabCount
		m.refreshGrid()
	case "shift+tab":
		m.tab = (m.tab - 1 + tabCount) % tabCount
		m.refreshGrid()
	case "s":
		if m.tab == TabHistogram {
			m.histogram = (m.histogram + 1) % len(roster.Subjects)
		}
	case "e":
		if m.roster == nil {
			return m, nil
		}
		exports, err := m.exportsForTab()
		if err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.startLoading("export", "💾 Writing reports", "Saving XLSX files to "+m.outDir, HomeView)
		return m, tea.Batch(m.spinner.Tick, exportCmd(m.outDir, exports))
	case "p":
		m.clearStatus()
		m.prediction = nil
		m.currentView = PredictView
		cmd := m.predictForm.focus(0)
		return m, cmd
	case "t":
		m.clearStatus()
		m.session.Go(identity.RouteTeam)
		m.currentView = TeamView
	case "L":
		m.signOut()
		cmd := m.loginForm.focus(0)
		return m, cmd
	case "up", "k", "down", "j", "pgup", "pgdown":
		var cmd tea.Cmd
		m.grid, cmd = m.grid.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleEditingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stopEditing()
		return m, nil
	case "enter":
		if m.editing == editSearch {
			m.stopEditing()
			m.analyze()
			return m, nil
		}
		paths := splitPaths(m.filesInput.value(0))
		if len(paths) == 0 {
			m.setError("Enter one or more spreadsheet paths, separated by commas.")
			return m, nil
		}
		m.stopEditing()
		m.startLoading("load", "📂 Loading spreadsheets", fmt.Sprintf("Reading %d file(s)", len(paths)), HomeView)
		return m, tea.Batch(m.spinner.Tick, loadCmd(m.ws, paths))
	}
	f := m.editor()
	var cmd tea.Cmd
	*f, cmd = f.update(msg)
	if m.editing == editSearch {
		m.analyze()
	}
	return m, cmd
}

func (m model) handlePredictKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.clearStatus()
		m.goHome()
		return m, nil
	case "enter":
		in, err := m.predictForm.input()
		if err == nil {
			var res predictor.Result
			res, err = m.ws.Predict(in)
			if err == nil {
				m.prediction = &res
				m.clearStatus()
				m.log.Debug("prediction", "session", m.session.ID, "model", res.Model, "percentage", res.Percentage)
				return m, nil
			}
		}
		m.prediction = nil
		m.setError(describeInputError(err))
		return m, nil
	}
	var cmd tea.Cmd
	m.predictForm, cmd = m.predictForm.update(msg)
	return m, cmd
}

func (m model) handleTeamKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "t":
		m.clearStatus()
		m.goHome()
		if m.roster == nil {
			cmd := m.startEditing(editFiles)
			return m, cmd
		}
	case "r":
		if m.session.SignedIn() {
			token := m.session.User.IDToken
			m.startLoading(actionResend, "✉️ Sending verification email", "Asking the identity provider to resend the link", TeamView)
			return m, tea.Batch(m.spinner.Tick, actionCmd(actionResend, func(ctx context.Context) error {
				return m.auth.ResendVerification(ctx, token)
			}))
		}
	case "v":
		if m.session.SignedIn() {
			m.startLoading(actionRefresh, "🔄 Checking verification status", "Refreshing your account from the identity provider", TeamView)
			return m, tea.Batch(m.spinner.Tick, refreshStatusCmd(m.auth, *m.session.User))
		}
	case "L":
		m.signOut()
		cmd := m.loginForm.focus(0)
		return m, cmd
	}
	return m, nil
}

func (m *model) startLoading(action, reason, help string, back ViewType) {
	m.clearStatus()
	m.pending = action
	m.loadingState = LoadingState{
		Reason:     reason,
		HelpText:   help,
		BottomText: "• Esc: Back • Q: Quit",
		Back:       back,
	}
	m.currentView = LoadingView
}

func (m *model) editor() *form {
	switch m.editing {
	case editFiles:
		return &m.filesInput
	case editSearch:
		return &m.searchInput
	}
	return nil
}

func (m *model) startEditing(t editTarget) tea.Cmd {
	m.stopEditing()
	m.editing = t
	return m.editor().focus(0)
}

func (m *model) stopEditing() {
	if f := m.editor(); f != nil {
		f.blur()
	}
	m.editing = editNone
}

func (m *model) goHome() {
	m.session.Go(identity.RouteHome)
	m.currentView = HomeView
}

func (m *model) signOut() {
	m.log.Info("signed out", "session", m.session.ID)
	m.session.SignOut()
	m.currentView = LoginView
	m.stopEditing()
	m.loginForm.reset()
	m.clearStatus()
}

func (m *model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *model) setError(s string) {
	m.status, m.statusErr = s, true
}

func (m *model) clearStatus() {
	m.status, m.statusErr = "", false
}

func (m *model) setRoster(t *roster.Table) {
	m.roster = t
	m.classes = t.Classes()
	m.class = 0
	m.comparison = analysis.CompareClasses(t)
	m.analyze()
}

// analyze recomputes the selected class view. It is cheap enough to run on
// every keystroke of the search box.
func (m *model) analyze() {
	if m.roster == nil {
		return
	}
	class := ""
	if len(m.classes) > 0 {
		class = m.classes[m.class]
	}
	m.report = analysis.Analyze(m.roster, class, m.searchInput.value(0))
	m.refreshGrid()
}
