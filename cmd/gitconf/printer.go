package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	bold       = color.New(color.Bold).Sprint
	boldYellow = color.New(color.Bold, color.FgYellow).Sprint
	boldRed    = color.New(color.Bold, color.FgRed).Sprint
	boldGreen  = color.New(color.Bold, color.FgGreen).Sprint
	faint      = color.New(color.Faint).Sprint
)

// printer writes command results. Colors follow color.NoColor, which is
// set when the output is not a terminal.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Println(msg string) {
	fmt.Fprintln(p.w, msg)
}

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// Itemln prints msg indented under a heading
func (p *printer) Itemln(msg string) {
	fmt.Fprintln(p.w, faint("  "), msg)
}

func (p *printer) Warnln(msg string) {
	fmt.Fprintln(p.w, boldYellow("Warning:"), bold(msg))
}

func (p *printer) Errorln(msg string) {
	fmt.Fprintln(p.w, boldRed("Error:"), bold(msg))
}

func (p *printer) Successln(msg string) {
	fmt.Fprintln(p.w, boldGreen(msg))
}
