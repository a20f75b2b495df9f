// Package ui renders custdb responses for terminal users and drives the
// interactive menu of the custdb client.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/cachemir/custdb/pkg/store"
)

var (
	bannerStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false).
		Padding(0, 1)

	successStyle = bannerStyle.
		BorderForeground(lipgloss.Color("2")).
		Foreground(lipgloss.Color("2"))

	failureStyle = bannerStyle.
		BorderForeground(lipgloss.Color("1")).
		Foreground(lipgloss.Color("1"))

	titleStyle = lipgloss.NewStyle().Bold(true)
)

var recordHeader = []string{"name", "age", "address", "phone"}

// Printer writes messages and record tables to a terminal.
type Printer struct {
	out io.Writer
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Message prints msg between rules.
func (p *Printer) Message(msg string) {
	fmt.Fprintln(p.out, bannerStyle.Render(msg))
}

// Success prints an acknowledgement.
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, successStyle.Render(msg))
}

// Failure prints an error or rejection message.
func (p *Printer) Failure(msg string) {
	fmt.Fprintln(p.out, failureStyle.Render(msg))
}

// Title prints a bold heading on its own line.
func (p *Printer) Title(title string) {
	fmt.Fprintln(p.out, titleStyle.Render(title))
}

// Line prints s followed by a newline.
func (p *Printer) Line(s string) {
	fmt.Fprintln(p.out, s)
}

// Prompt prints label without a trailing newline.
func (p *Printer) Prompt(label string) {
	fmt.Fprint(p.out, label)
}

// Records prints recs as a table in the order given.
func (p *Printer) Records(recs []store.Record) {
	table := tablewriter.NewWriter(p.out)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(recordHeader)
	for _, rec := range recs {
		table.Append([]string{rec.Name, rec.Age.String(), oneLine(rec.Address), rec.Phone})
	}
	table.Render()
	fmt.Fprintf(p.out, "(%d customer%s)\n", len(recs), plural(len(recs)))
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(s)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
