package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/resolver"
)

const ruleWidth = 48

var (
	colorTitle = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	colorDim   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	colorError = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorLabel = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
)

// view writes the loop's output. Styles are bound to the output's renderer,
// so plain text is produced when out is not a terminal.
type view struct {
	out   io.Writer
	title lipgloss.Style
	rule  lipgloss.Style
	err   lipgloss.Style
	label lipgloss.Style
}

func newView(out io.Writer) *view {
	r := lipgloss.NewRenderer(out)
	return &view{
		out:   out,
		title: r.NewStyle().Foreground(colorTitle).Bold(true),
		rule:  r.NewStyle().Foreground(colorDim),
		err:   r.NewStyle().Foreground(colorError),
		label: r.NewStyle().Foreground(colorLabel),
	}
}

func (v *view) printf(format string, args ...any) {
	fmt.Fprintf(v.out, format, args...)
}

func (v *view) println(s string) {
	fmt.Fprintln(v.out, s)
}

func (v *view) hr() {
	v.println(v.rule.Render(strings.Repeat("-", ruleWidth)))
}

func (v *view) section(title string) {
	v.hr()
	v.println(v.title.Render(title))
	v.hr()
}

func (v *view) errorf(format string, args ...any) {
	v.println(v.err.Render(fmt.Sprintf(format, args...)))
}

// fields prints label/value pairs with the labels padded to equal width.
func (v *view) fields(pairs ...[2]string) {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	for _, p := range pairs {
		v.printf("%s: %s\n", v.label.Render(fmt.Sprintf("%-*s", width, p[0])), p[1])
	}
}

func (v *view) banner(org, sender string) {
	v.section("Mail Agent · " + org)
	if sender != "" {
		v.printf("Sender: %s\n", sender)
	}
	v.println("Type 'quit' anytime to exit.\n")
}

func (v *view) lookupResult(role string, res *resolver.Result) {
	p := res.Primary
	v.section("Lookup Result")
	v.fields(
		[2]string{titleCase(role) + " Name", orDefault(p.Name, "Unknown")},
		[2]string{"Department", orDefault(p.Department, "Department not provided")},
		[2]string{"Email", p.Email},
	)

	if same := res.SameName(); len(same) > 1 {
		v.hr()
		v.printf("Multiple %ss share this name:\n", role)
		for i, c := range same {
			v.printf("%d. %s - %s - %s\n", i+1, orDefault(c.Name, "Unknown"),
				orDefault(c.Department, "Department not provided"), c.Email)
		}
	}
	v.hr()
}

func (v *view) draft(d email.Draft) {
	v.section("Email Draft")
	to := d.To
	if to == "" {
		to = "(blank)"
	}
	v.fields([2]string{"To", to}, [2]string{"Subject", d.Subject})
	v.println("")
	v.println(d.Body)
	v.hr()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
