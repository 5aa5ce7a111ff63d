package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusKinds = map[statusKind]struct {
	tag   string
	color text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

const labelWidth = 22

var titleCaser = cases.Title(language.English)

// titleLabel turns identifiers such as "running" or "data_loss" into labels.
func titleLabel(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

// statusWriter prints aligned "label: value" lines grouped under section
// headings, colouring them only for terminals.
type statusWriter struct {
	w     io.Writer
	color bool
}

func newStatusWriter(w io.Writer) *statusWriter {
	return &statusWriter{w: w, color: isTerminal(w)}
}

func (s *statusWriter) paint(c text.Colors, line string) string {
	if !s.color {
		return line
	}
	return c.Sprint(line)
}

func (s *statusWriter) section(title string) {
	heading := "== " + title + " =="
	blue := text.Colors{text.FgBlue}
	fmt.Fprintln(s.w, s.paint(blue, heading))
	fmt.Fprintln(s.w, s.paint(blue, strings.Repeat("-", len(heading))))
}

func (s *statusWriter) value(label, value string) {
	fmt.Fprintf(s.w, "  %-*s %s\n", labelWidth, label+":", value)
}

func (s *statusWriter) status(label string, kind statusKind, detail string) {
	k := statusKinds[kind]
	line := fmt.Sprintf("  %-*s [%s]", labelWidth, label+":", k.tag)
	if detail != "" {
		line += " " + detail
	}
	fmt.Fprintln(s.w, s.paint(k.color, line))
}

func (s *statusWriter) gap() { fmt.Fprintln(s.w) }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
