// Package status prints the node's human facing progress lines: status
// messages, nested notes and error tracebacks. Structured logging stays with
// the logger; this is what an operator watches on the terminal.
package status

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

var (
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	noteStyle     = lipgloss.NewStyle().Faint(true)
	causeStyle    = lipgloss.NewStyle().Bold(true).Faint(true)
	keyStyle      = lipgloss.NewStyle().Bold(true)
)

// Printer writes styled lines to one writer. It is safe for concurrent use.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Default prints to stderr.
var Default = New(os.Stderr)

func (p *Printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

// Status prints a top level progress line.
func (p *Printer) Status(msg string) {
	p.println(statusStyle.Render(msg))
}

// Warn prints a top level line that needs attention.
func (p *Printer) Warn(msg string) {
	p.println(warnStyle.Render(msg))
}

// Note prints a line nested under the previous status.
func (p *Printer) Note(msg string) {
	p.println(" " + noteStyle.Render("→") + "  " + noteStyle.Render(msg))
}

// Problem prints a recoverable error with its causes.
func (p *Printer) Problem(err error) {
	p.trace(warnStyle.Render("Problem:"), warnStyle, err)
}

// Critical prints an error that ends the process.
func (p *Printer) Critical(err error) {
	p.trace(criticalStyle.Render("Critical Problem:"), criticalStyle, err)
}

func (p *Printer) trace(label string, style lipgloss.Style, err error) {
	chain := Chain(err)
	if len(chain) == 0 {
		return
	}
	lines := []string{label + " " + style.Render(capitalize(chain[0]))}
	for _, cause := range chain[1:] {
		lines = append(lines, " "+causeStyle.Render("→ Caused by")+": "+capitalize(cause))
	}
	p.println(strings.Join(lines, "\n"))
}

// Report prints a titled block of aligned key/value rows.
func (p *Printer) Report(title string, rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	key := keyStyle.Width(width + 2)
	lines := []string{statusStyle.Render(title)}
	for _, r := range rows {
		lines = append(lines, " "+lipgloss.JoinHorizontal(lipgloss.Top, key.Render(r[0]), r[1]))
	}
	p.println(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// Chain splits err into its own message followed by the message of every
// wrapped cause.
func Chain(err error) []string {
	var out []string
	for err != nil {
		next := errors.Unwrap(err)
		msg := err.Error()
		if next != nil {
			msg = strings.TrimSuffix(msg, ": "+next.Error())
		}
		if msg != "" && (len(out) == 0 || out[len(out)-1] != msg) {
			out = append(out, msg)
		}
		err = next
	}
	return out
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// Package level shortcuts on Default.

func Status(msg string)                     { Default.Status(msg) }
func Warn(msg string)                       { Default.Warn(msg) }
func Note(msg string)                       { Default.Note(msg) }
func Problem(err error)                     { Default.Problem(err) }
func Critical(err error)                    { Default.Critical(err) }
func Report(title string, rows [][2]string) { Default.Report(title, rows) }
