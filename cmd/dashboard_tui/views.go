package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/analysis"
	"github.com/feelsunbreeze/student_dashboard/internal/report"
	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

func (m model) View() string {
	switch m.currentView {
	case LoginView:
		return m.renderLogin()
	case SignUpView:
		return m.renderSignUp()
	case ResetView:
		return m.renderReset()
	case LoadingView:
		return m.renderLoading()
	case HomeView:
		return m.renderHome()
	case PredictView:
		return m.renderPredict()
	case TeamView:
		return m.renderTeam()
	default:
		return "Unknown view"
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(LIGHT_BLUE).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(WHITE)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(WHITE).
			Padding(0, 1).
			Width(32)

	focusedInputStyle = inputStyle.
				BorderForeground(BLUE)

	helpStyle = lipgloss.NewStyle().
			Foreground(GREY).
			MarginTop(1)
)

func (m model) place(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	color := GREEN
	if m.statusErr {
		color = RED
	}
	return lipgloss.NewStyle().Foreground(color).MarginTop(1).Render(m.status)
}

func (m model) renderAuthForm(title string, f form, help string) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(title),
		f.view(labelStyle, inputStyle, focusedInputStyle),
		m.renderStatus(),
		helpStyle.Render(help),
	)
	return m.place(content)
}

func (m model) renderLogin() string {
	return m.renderAuthForm("🎓 Student Performance Dashboard", m.loginForm,
		"• ↑/↓: Navigate • Enter: Log in • Esc: Show password • Ctrl+N: Sign up • Ctrl+R: Forgot password • Ctrl+C: Quit")
}

func (m model) renderSignUp() string {
	return m.renderAuthForm("📝 Create an account", m.signUpForm,
		"• ↑/↓: Navigate • Enter: Sign up • Esc: Back to login • Ctrl+C: Quit")
}

func (m model) renderReset() string {
	return m.renderAuthForm("🔑 Reset your password", m.resetForm,
		"• Enter: Send reset email • Esc: Back to login • Ctrl+C: Quit")
}

func (m model) renderLoading() string {
	reasonStyle := lipgloss.NewStyle().
		Foreground(WHITE).
		Bold(true).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Center,
		reasonStyle.Render(m.loadingState.Reason),
		m.spinner.View(),
		helpStyle.Render(m.loadingState.HelpText),
		helpStyle.Render(m.loadingState.BottomText),
	)
	return m.place(content)
}

func (m model) renderHeader() string {
	turquoiseStyle := lipgloss.NewStyle().Foreground(TURQUOISE).Bold(true)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(LIGHT_BLUE)

	name := "guest"
	badge := ""
	if m.session.SignedIn() {
		name = m.session.User.DisplayName
		if m.session.User.Verified {
			badge = lipgloss.NewStyle().Foreground(GREEN).Render("✅ verified")
		} else {
			badge = lipgloss.NewStyle().Foreground(YELLOW).Render("⚠️ unverified")
		}
	}
	return lipgloss.NewStyle().MarginBottom(1).Render(fmt.Sprintf("%s, %s %s", headerStyle.Render("Welcome"), turquoiseStyle.Render(name), badge))
}

func (m model) renderHome() string {
	header := m.renderHeader()

	if m.roster == nil || m.editing == editFiles {
		content := lipgloss.JoinVertical(lipgloss.Center,
			header,
			titleStyle.Render("📂 Load class spreadsheets"),
			m.filesInput.view(labelStyle, inputStyle.Width(64), focusedInputStyle.Width(64)),
			m.renderStatus(),
			helpStyle.Render("• Enter: Load (.xlsx, .csv, .html) • Esc: Cancel • P: Predictor • T: Team • Ctrl+C: Quit"),
		)
		return m.place(content)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		header,
		m.renderClassBar(),
		m.renderSummary(),
		m.renderTabs(),
		m.renderTabBody(),
		m.renderStatus(),
		helpStyle.Render("• ←/→: Class • Tab: View • /: Search • E: Export • O: Open files • P: Predictor • T: Team • L: Log out • Q: Quit"),
	)
	return m.place(content)
}

func (m model) renderClassBar() string {
	lavenderStyle := lipgloss.NewStyle().Foreground(LAVENDER).Bold(true)
	greyStyle := lipgloss.NewStyle().Foreground(GREY)

	class := "(no classes)"
	if len(m.classes) > 0 {
		class = m.classes[m.class]
	}
	bar := fmt.Sprintf("🏫 %s %s", lavenderStyle.Render(class), greyStyle.Render(fmt.Sprintf("(%d of %d)", m.class+1, len(m.classes))))

	if m.editing == editSearch || m.searchInput.value(0) != "" {
		bar += "   🔎 " + m.searchInput.inputs[0].View()
	}
	return bar
}

func (m model) renderSummary() string {
	if m.report.Empty() {
		return lipgloss.NewStyle().Foreground(YELLOW).Margin(1, 0).Render("No students match this class and search.")
	}
	s := m.report.Summary
	statsStyle := lipgloss.NewStyle().Foreground(WHITE)
	turquoiseStyle := lipgloss.NewStyle().Foreground(TURQUOISE)
	lightGreenStyle := lipgloss.NewStyle().Foreground(LIGHT_GREEN)
	lavenderStyle := lipgloss.NewStyle().Foreground(LAVENDER)
	pinkStyle := lipgloss.NewStyle().Foreground(PINK)

	line := fmt.Sprintf("%s %s | %s %s | %s %s | %s %s",
		statsStyle.Render("Students:"), turquoiseStyle.Render(fmt.Sprint(s.Students)),
		statsStyle.Render("Avg %:"), lavenderStyle.Render(fmt.Sprintf("%.2f", s.AveragePercentage)),
		statsStyle.Render("Pass rate:"), lightGreenStyle.Render(fmt.Sprintf("%.2f%%", s.PassRate)),
		statsStyle.Render("Topper %:"), pinkStyle.Render(fmt.Sprintf("%.2f", s.TopperPercentage)),
	)
	return lipgloss.NewStyle().Margin(1, 0).Render(line)
}

func (m model) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(WHITE).Background(BLUE).Padding(0, 1)
	normal := lipgloss.NewStyle().Foreground(SILVER).Padding(0, 1)
	var tabs []string
	for t := Tab(0); t < tabCount; t++ {
		if t == m.tab {
			tabs = append(tabs, active.Render(t.String()))
		} else {
			tabs = append(tabs, normal.Render(t.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m model) renderTabBody() string {
	if m.tab == TabHistogram {
		return m.renderHistogram()
	}
	if len(m.grid.Rows()) == 0 {
		msg := "No data."
		if m.tab == TabWeak {
			msg = "🎉 No marks below 40."
		}
		return lipgloss.NewStyle().Foreground(GREY).Margin(1, 0).Render(msg)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BLUE).
		Render(m.grid.View())
}

// renderHistogram draws one subject's distribution as horizontal bars.
func (m model) renderHistogram() string {
	subject := roster.Subjects[m.histogram]
	bins := analysis.Histogram(m.report.Records, subject, analysis.DefaultBins)

	peak := 0
	for _, b := range bins {
		peak = max(peak, b.Count)
	}
	const width = 40
	barStyle := lipgloss.NewStyle().Foreground(TURQUOISE)
	var rows []string
	for _, b := range bins {
		n := 0
		if peak > 0 {
			n = b.Count * width / peak
		}
		rows = append(rows, fmt.Sprintf("%6.1f-%-6.1f %s %d", b.Lower, b.Upper, barStyle.Render(strings.Repeat("█", n)), b.Count))
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(LIGHT_BLUE).Render("📈 " + subject + "  (S: next subject)")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BLUE).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")))
}

func (m model) renderPredict() string {
	p := m.predictForm
	choiceStyle := lipgloss.NewStyle().Foreground(SILVER).Padding(0, 1)
	focusedChoice := lipgloss.NewStyle().Bold(true).Foreground(WHITE).Background(BLUE).Padding(0, 1)

	var rows []string
	rows = append(rows, p.numbers.view(labelStyle, inputStyle.Width(12), focusedInputStyle.Width(12)))
	for i, c := range p.choices {
		style := choiceStyle
		if p.focused == predGender+i {
			style = focusedChoice
		}
		rows = append(rows, fmt.Sprintf("%s %s", labelStyle.Render(c.label+":"), style.Render("‹ "+c.value()+" ›")))
	}

	result := ""
	if m.prediction != nil {
		r := m.prediction
		result = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(GREEN).
			Padding(0, 2).
			MarginTop(1).
			Render(fmt.Sprintf("Predicted score: %.1f%%   Grade: %s", r.Percentage, r.Grade))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(fmt.Sprintf("🔮 Performance predictor (%s model)", m.ws.Model.Name)),
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		result,
		m.renderStatus(),
		lipgloss.NewStyle().Foreground(GREY).Render("A simple rule-based estimate, not a trained model."),
		helpStyle.Render("• ↑/↓: Field • ←/→: Change choice • Enter: Predict • Esc: Back • Ctrl+C: Quit"),
	)
	return m.place(content)
}

func (m model) renderTeam() string {
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(LIGHT_BLUE)
	valueStyle := lipgloss.NewStyle().Foreground(WHITE)

	var details []string
	if u := m.session.User; u != nil {
		verified := "not verified ❌"
		if u.Verified {
			verified = "verified ✅"
		}
		details = []string{
			fmt.Sprintf("%s %s", labelStyle.Render("Name:"), valueStyle.Render(u.DisplayName)),
			fmt.Sprintf("%s %s", labelStyle.Render("Email:"), valueStyle.Render(u.Email)),
			fmt.Sprintf("%s %s", labelStyle.Render("Status:"), valueStyle.Render(verified)),
		}
	}
	details = append(details, fmt.Sprintf("%s %s", labelStyle.Render("Session:"), valueStyle.Render(m.session.ID.String())))

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("👤 Team"),
		lipgloss.JoinVertical(lipgloss.Left, details...),
		m.renderStatus(),
		helpStyle.Render("• V: I have verified, refresh status • R: Resend verification email • Esc: Dashboard • L: Log out • Q: Quit"),
	)
	return m.place(content)
}

func newGrid(columns []table.Column, rows []table.Row) table.Model {
	tbl := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(min(max(len(rows)+1, 5), 15)),
		table.WithFocused(true),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(BLUE).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(WHITE).
		Background(BLUE).
		Bold(true)
	tbl.SetStyles(s)
	return tbl
}

func averageText(a analysis.SubjectAverage) string {
	if !a.HasData {
		return "no data"
	}
	return fmt.Sprintf("%.2f", a.Average)
}

// refreshGrid rebuilds the table for the active tab from the current report.
func (m *model) refreshGrid() {
	var (
		columns []table.Column
		rows    []table.Row
	)
	switch m.tab {
	case TabAverages:
		columns = []table.Column{{Title: "Subject", Width: 22}, {Title: "Average (%)", Width: 12}}
		for _, a := range m.report.Averages {
			rows = append(rows, table.Row{a.Subject, averageText(a)})
		}
	case TabTop:
		columns = []table.Column{{Title: "Rank", Width: 5}, {Title: "Reg.no", Width: 12}, {Title: "Name", Width: 24}, {Title: "Total", Width: 8}, {Title: "%", Width: 7}}
		for _, r := range m.report.Top {
			rows = append(rows, table.Row{r.Rank, r.RegNo, r.Name, fmt.Sprintf("%g", r.Total), fmt.Sprintf("%.2f", r.Percentage)})
		}
	case TabWeak:
		columns = []table.Column{{Title: "Reg.no", Width: 12}, {Title: "Name", Width: 24}, {Title: "Subject", Width: 22}, {Title: "Marks", Width: 6}}
		for _, w := range m.report.Weak {
			rows = append(rows, table.Row{w.RegNo, w.Name, w.Subject, fmt.Sprintf("%g", w.Mark)})
		}
	case TabStudents:
		columns = []table.Column{{Title: "Reg.no", Width: 10}, {Title: "Name", Width: 18}}
		for _, sub := range roster.Subjects {
			columns = append(columns, table.Column{Title: abbreviate(sub), Width: 6})
		}
		columns = append(columns, table.Column{Title: "Total", Width: 6}, table.Column{Title: "%", Width: 6})
		for _, rec := range m.report.Records {
			row := table.Row{rec.RegNo, rec.Name}
			for _, sub := range roster.Subjects {
				row = append(row, fmt.Sprintf("%g", rec.Mark(sub)))
			}
			row = append(row, fmt.Sprintf("%g", rec.Total()), fmt.Sprintf("%.2f", rec.Percentage()))
			rows = append(rows, row)
		}
	case TabCompare:
		columns = []table.Column{{Title: "Class", Width: 10}}
		for _, sub := range roster.Subjects {
			columns = append(columns, table.Column{Title: abbreviate(sub), Width: 6})
		}
		columns = append(columns, table.Column{Title: "Students", Width: 8}, table.Column{Title: "Pass %", Width: 7})
		for _, c := range m.comparison {
			row := table.Row{c.Class}
			for _, a := range c.Averages {
				row = append(row, averageText(a))
			}
			row = append(row, fmt.Sprint(c.Students), fmt.Sprintf("%.2f", c.PassRate))
			rows = append(rows, row)
		}
	default:
		m.grid = table.Model{}
		return
	}
	m.grid = newGrid(columns, rows)
}

// abbreviate shortens a subject name to its initials for narrow columns.
func abbreviate(subject string) string {
	var b strings.Builder
	for _, w := range strings.Fields(subject) {
		b.WriteString(strings.ToUpper(w[:1]))
	}
	return b.String()
}

// exportsForTab picks what E writes for the active tab.
func (m model) exportsForTab() ([]report.Export, error) {
	var kinds []string
	switch m.tab {
	case TabAverages:
		kinds = []string{report.KindAverages}
	case TabTop:
		kinds = []string{report.KindTop}
	case TabWeak:
		kinds = []string{report.KindWeak}
	case TabStudents:
		kinds = []string{report.KindFull}
	case TabCompare:
		kinds = []string{report.KindCompare, report.KindStrength, report.KindPassRate}
	default:
		return nil, errors.New("Nothing to export from this view. Switch to a table first.")
	}

	exports := make([]report.Export, 0, len(kinds))
	for _, kind := range kinds {
		e, err := report.Build(kind, m.report, m.comparison)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, nil
}
