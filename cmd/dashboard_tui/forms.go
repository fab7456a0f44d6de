package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/predictor"
)

type field struct {
	label       string
	placeholder string
	secret      bool
	limit       int
}

// form is a vertical stack of text inputs with one focused at a time.
type form struct {
	labels  []string
	secret  []bool
	inputs  []textinput.Model
	focused int
}

func newForm(fields ...field) form {
	f := form{focused: -1}
	for _, fd := range fields {
		in := textinput.New()
		in.Placeholder = fd.placeholder
		in.Prompt = ""
		in.Width = 30
		in.CharLimit = 128
		if fd.limit > 0 {
			in.CharLimit = fd.limit
		}
		if fd.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '*'
		}
		f.labels = append(f.labels, fd.label)
		f.secret = append(f.secret, fd.secret)
		f.inputs = append(f.inputs, in)
	}
	return f
}

func newLoginForm() form {
	return newForm(
		field{label: "Email:", placeholder: "Enter your email"},
		field{label: "Password:", placeholder: "Enter your password", secret: true},
	)
}

func newSignUpForm() form {
	return newForm(
		field{label: "Display name (optional):", placeholder: "How should we greet you?"},
		field{label: "Email:", placeholder: "Enter your email"},
		field{label: "Password:", placeholder: "At least 6 characters", secret: true},
	)
}

func newResetForm() form {
	return newForm(field{label: "Email:", placeholder: "Email of your account"})
}

func newFilesInput() form {
	f := newForm(field{label: "Spreadsheets:", placeholder: "classA.xlsx, classB.csv", limit: 1024})
	f.inputs[0].Width = 60
	return f
}

func newSearchInput() form {
	return newForm(field{label: "Search:", placeholder: "Student name"})
}

func (f *form) focus(i int) tea.Cmd {
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.focused = i
	return f.inputs[i].Focus()
}

func (f *form) blur() {
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.focused = -1
}

func (f *form) next() tea.Cmd {
	return f.focus((f.focused + 1) % len(f.inputs))
}

func (f *form) prev() tea.Cmd {
	return f.focus((f.focused - 1 + len(f.inputs)) % len(f.inputs))
}

func (f form) onLast() bool {
	return f.focused == len(f.inputs)-1
}

// value returns the trimmed text of input i.
func (f form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) reset() {
	for j := range f.inputs {
		f.inputs[j].Reset()
	}
	if len(f.inputs) > 0 {
		f.focus(0)
	}
}

// reveal toggles plain-text display of secret inputs.
func (f *form) reveal(show bool) {
	for j := range f.inputs {
		if !f.secret[j] {
			continue
		}
		if show {
			f.inputs[j].EchoMode = textinput.EchoNormal
		} else {
			f.inputs[j].EchoMode = textinput.EchoPassword
		}
	}
}

func (f form) update(msg tea.KeyMsg) (form, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return f, f.next()
	case "shift+tab", "up":
		return f, f.prev()
	}
	if f.focused < 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return f, cmd
}

func (f form) view(labelStyle, inputStyle, focusedStyle lipgloss.Style) string {
	var rows []string
	for i, in := range f.inputs {
		style := inputStyle
		if i == f.focused {
			style = focusedStyle
		}
		rows = append(rows, lipgloss.JoinVertical(lipgloss.Left,
			labelStyle.Render(f.labels[i]),
			style.Render(in.View()),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// choice is a closed set of options cycled with ←/→.
type choice struct {
	label   string
	options []string
	index   int
}

func (c *choice) move(delta int) {
	n := len(c.options)
	c.index = (c.index + delta + n) % n
}

func (c choice) value() string {
	return c.options[c.index]
}

func indexOf(options []string, v string) int {
	for i, o := range options {
		if o == v {
			return i
		}
	}
	return 0
}

const (
	predAge = iota
	predAbsences
	predStudy
	predGender
	predEducation
	predSupport
	predEthnicity
	predSports
	predFieldCount
)

// predictForm collects predictor.Input. The first three rows are numeric text
// inputs and the rest are choices.
type predictForm struct {
	numbers form
	choices []choice
	focused int
}

func newPredictForm(m predictor.Model) predictForm {
	numbers := newForm(
		field{label: "Age (10-25):", limit: 3},
		field{label: "Absences:", limit: 4},
		field{label: "Study hours / week:", limit: 4},
	)
	numbers.inputs[predAge].SetValue("16")
	numbers.inputs[predAbsences].SetValue("5")
	numbers.inputs[predStudy].SetValue("10")
	for i := range numbers.inputs {
		numbers.inputs[i].Width = 8
	}

	education := m.Education.Names()
	support := m.Support.Names()
	return predictForm{
		numbers: numbers,
		choices: []choice{
			{label: "Gender", options: []string{"Female", "Male", "Other"}},
			{label: "Parental education", options: education, index: indexOf(education, "High School")},
			{label: "Parental support", options: support, index: indexOf(support, "Moderate")},
			{label: "Ethnicity", options: []string{"Group A", "Group B", "Group C", "Group D", "Group E"}},
			{label: "Sports", options: []string{"No", "Yes"}},
		},
	}
}

func (p *predictForm) focus(i int) tea.Cmd {
	p.focused = i
	if i < predGender {
		return p.numbers.focus(i)
	}
	p.numbers.blur()
	return nil
}

func (p predictForm) update(msg tea.KeyMsg) (predictForm, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return p, p.focus((p.focused + 1) % predFieldCount)
	case "shift+tab", "up":
		return p, p.focus((p.focused - 1 + predFieldCount) % predFieldCount)
	case "left", "right":
		if p.focused >= predGender {
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			p.choices[p.focused-predGender].move(delta)
			return p, nil
		}
	}
	if p.focused < predGender {
		var cmd tea.Cmd
		p.numbers.inputs[p.focused], cmd = p.numbers.inputs[p.focused].Update(msg)
		return p, cmd
	}
	return p, nil
}

// input parses the form. Range checks are left to Input.Validate.
func (p predictForm) input() (predictor.Input, error) {
	age, err := strconv.Atoi(p.numbers.value(predAge))
	if err != nil {
		return predictor.Input{}, errors.New("Age must be a whole number.")
	}
	absences, err := strconv.ParseFloat(p.numbers.value(predAbsences), 64)
	if err != nil {
		return predictor.Input{}, errors.New("Absences must be a number.")
	}
	hours, err := strconv.ParseFloat(p.numbers.value(predStudy), 64)
	if err != nil {
		return predictor.Input{}, errors.New("Study hours must be a number.")
	}
	return predictor.Input{
		Age:        age,
		Gender:     p.choices[predGender-predGender].value(),
		Absences:   absences,
		StudyHours: hours,
		Education:  p.choices[predEducation-predGender].value(),
		Support:    p.choices[predSupport-predGender].value(),
		Ethnicity:  p.choices[predEthnicity-predGender].value(),
		Sports:     p.choices[predSports-predGender].value() == "Yes",
	}, nil
}

var fieldHints = map[string]string{
	"age":         "Age must be between 10 and 25.",
	"absences":    "Absences must be a finite number, not negative.",
	"study_hours": "Study hours must be a finite number, not negative.",
}

func describeInputError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if hint, ok := fieldHints[verrs[0].Field()]; ok {
			return hint
		}
		return "Invalid " + verrs[0].Field() + "."
	}
	return err.Error()
}
