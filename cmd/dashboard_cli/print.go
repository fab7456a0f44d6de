package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/feelsunbreeze/student_dashboard/internal/analysis"
	"github.com/feelsunbreeze/student_dashboard/internal/identity"
	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

const (
	BLUE   = lipgloss.Color("#2563EB")
	GRAY   = lipgloss.Color("#6B7280")
	RED    = lipgloss.Color("#DC2626")
	GREEN  = lipgloss.Color("#16A34A")
	YELLOW = lipgloss.Color("#CA8A04")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(BLUE).MarginTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(GRAY)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func averageText(a analysis.SubjectAverage) string {
	if !a.HasData {
		return "no data"
	}
	return fmt.Sprintf("%.2f", a.Average)
}

func printReport(w io.Writer, r analysis.ClassReport) {
	title := "Class " + r.Class
	if r.Query != "" {
		title += fmt.Sprintf(" (name contains %q)", r.Query)
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintf(w, "Students: %d  Average: %.2f%%  Pass rate: %.2f%%  Topper: %.2f%%\n",
		r.Summary.Students, r.Summary.AveragePercentage, r.Summary.PassRate, r.Summary.TopperPercentage)

	fmt.Fprintln(w, titleStyle.Render("Subject averages"))
	avg := newTable("Subject", "Average (%)")
	for _, a := range r.Averages {
		avg.Row(a.Subject, averageText(a))
	}
	fmt.Fprintln(w, avg.Render())

	fmt.Fprintln(w, titleStyle.Render("Top 3"))
	top := newTable("Rank", "Reg.no", "Name", "Total", "%")
	for _, t := range r.Top {
		top.Row(t.Rank, t.RegNo, t.Name, fmt.Sprintf("%g", t.Total), fmt.Sprintf("%.2f", t.Percentage))
	}
	fmt.Fprintln(w, top.Render())

	fmt.Fprintln(w, titleStyle.Render("Weak students (<40)"))
	if len(r.Weak) == 0 {
		fmt.Fprintln(w, lipgloss.NewStyle().Foreground(GREEN).Render("No marks below 40."))
		return
	}
	weak := newTable("Reg.no", "Name", "Subject", "Marks")
	for _, m := range r.Weak {
		weak.Row(m.RegNo, m.Name, m.Subject, fmt.Sprintf("%g", m.Mark))
	}
	fmt.Fprintln(w, weak.Render())
}

func printComparison(w io.Writer, cmp []analysis.ClassComparison) {
	fmt.Fprintln(w, titleStyle.Render("Class comparison"))
	headers := append([]string{"Class"}, roster.Subjects...)
	headers = append(headers, "Students", "Pass rate (%)")
	t := newTable(headers...)
	for _, c := range cmp {
		row := []string{c.Class}
		for _, a := range c.Averages {
			row = append(row, averageText(a))
		}
		row = append(row, fmt.Sprint(c.Students), fmt.Sprintf("%.2f", c.PassRate))
		t.Row(row...)
	}
	fmt.Fprintln(w, t.Render())
}

func printUser(w io.Writer, u identity.User) {
	status := lipgloss.NewStyle().Foreground(YELLOW).Render("not verified")
	if u.Verified {
		status = lipgloss.NewStyle().Foreground(GREEN).Render("verified")
	}
	fmt.Fprintf(w, "Signed in as %s <%s> (%s)\n", u.DisplayName, u.Email, status)
}
