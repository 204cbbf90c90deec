package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/fanout/internal/discovery"
)

// Printer writes styled, non-interactive output such as discovery results
// and connection errors.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintRelays prints the relays found by a discovery scan
func (p *Printer) PrintRelays(relays []*discovery.Relay) {
	p.Println(RenderRelayList(relays, p.width))
}

// PrintError prints an error box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// RenderRelayList renders discovered relays as a boxed list
func RenderRelayList(relays []*discovery.Relay, width int) string {
	title := TitleStyle.Render(fmt.Sprintf("%d relay(s) found", len(relays)))
	if len(relays) == 0 {
		body := MutedStyle.Render("No relays answered. Is the server running with --advertise?")
		return BoxStyle(width, MutedColor).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body))
	}

	lines := []string{title, ""}
	for i, r := range relays {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, StatusOnlineStyle.Render(OnlineMarker+" "+r.Instance))
		lines = append(lines, KeyStyle.Render("  URL:")+" "+MessageStyle.Render(r.URL()))
		if r.Hostname != "" {
			lines = append(lines, KeyStyle.Render("  Host:")+" "+MessageStyle.Render(r.Hostname))
		}
		if r.Version != "" {
			lines = append(lines, KeyStyle.Render("  Version:")+" "+MessageStyle.Render(r.Version))
		}
	}
	return BoxStyle(width, PrimaryColor).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with troubleshooting
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	lines := []string{
		lipgloss.NewStyle().Foreground(ErrorColor).Bold(true).Render(FailureMarker + "  " + title),
		"",
	}

	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+err.Error()), "")
	}

	if len(troubleshooting) > 0 {
		lines = append(lines, MutedStyle.Bold(true).Render("Troubleshooting:"))
		for _, tip := range troubleshooting {
			lines = append(lines, MutedStyle.Render("  • "+tip))
		}
	}

	return BoxStyle(width, ErrorColor).Render(strings.Join(lines, "\n"))
}
