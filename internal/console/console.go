// Package console mirrors sample records to an interactive terminal,
// redrawing the previous block in place when the output is a TTY.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hwpulse/internal/collector"
)

// Renderer writes one block of lines per record. It tracks how many lines
// the prior tick rendered so the next tick can overwrite them.
type Renderer struct {
	out       io.Writer
	tty       bool
	prevLines int

	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	na     lipgloss.Style
}

// New builds a renderer. tty enables in-place redraw; when false every
// block is appended, which keeps piped output readable.
func New(out io.Writer, tty bool) *Renderer {
	return &Renderer{
		out:    out,
		tty:    tty,
		header: lipgloss.NewStyle().Bold(true),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		value:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		na:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (r *Renderer) Begin(columns []string) error { return nil }

func (r *Renderer) Write(rec collector.Record) error {
	var b strings.Builder

	if r.tty && r.prevLines > 0 {
		for i := 0; i < r.prevLines; i++ {
			b.WriteString("\033[F\033[K")
		}
	}

	lines := 1
	b.WriteString(r.header.Render(fmt.Sprintf("--- sample %d @ %s ---",
		rec.Seq, rec.Taken.Format("2006-01-02 15:04:05"))))
	b.WriteByte('\n')

	for i, name := range rec.Columns {
		v := rec.Values[i]
		b.WriteString(r.label.Render(fmt.Sprintf("%-16s", name)))
		switch v.Kind {
		case collector.Unavailable:
			b.WriteString(r.na.Render("N/A"))
		case collector.Percent:
			b.WriteString(r.value.Render(fmt.Sprintf("%6.2f%%", v.Num)))
		default:
			b.WriteString(r.value.Render(v.String()))
		}
		b.WriteByte('\n')
		lines++
	}

	if _, err := io.WriteString(r.out, b.String()); err != nil {
		return err
	}
	r.prevLines = lines
	return nil
}

// Lines reports how many lines the prior tick rendered.
func (r *Renderer) Lines() int { return r.prevLines }
