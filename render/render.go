// Package render prints scan reports for a terminal.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/taigrr/iwls/spectrum"
)

const header = "ESSID                Mac                  Quality       Channel   Connected"

// Printer writes listings to w. Styling degrades to plain text when w is not
// a terminal.
type Printer struct {
	w    io.Writer
	band spectrum.Band

	currentStyle lipgloss.Style
	headerStyle  lipgloss.Style
}

func New(w io.Writer, band spectrum.Band) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:            w,
		band:         band,
		currentStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00")),
		headerStyle:  r.NewStyle().Bold(true),
	}
}

// AccessPoints prints the table of access points, marking the current one.
func (p *Printer) AccessPoints(r spectrum.Report) {
	fmt.Fprintln(p.w, p.headerStyle.Render(header))
	for _, ap := range r.Points {
		connected := ""
		if r.IsCurrent(ap) {
			connected = p.currentStyle.Render("*")
		}
		fmt.Fprintln(p.w, Row(ap, p.band, connected))
	}
}

// Row formats one access point line of the table.
func Row(ap spectrum.AccessPoint, band spectrum.Band, connected string) string {
	return fmt.Sprintf("%-20s %-20s %-4s (%-9s) %-9s %s",
		ap.SSID,
		ap.HardwareAddress,
		spectrum.Percent(ap.Quality),
		ap.Signal,
		band.Readable(ap.Channel),
		connected,
	)
}

// Suggestions prints the channel advice for the current network, for a new
// one, and the per-channel load.
func (p *Printer) Suggestions(r spectrum.Report) {
	if r.Current != nil {
		fmt.Fprintln(p.w, Suggestion(r.Staying, strconv.Quote(r.Current.SSID)))
	} else {
		fmt.Fprintln(p.w, "Current access point is unknown")
	}
	fmt.Fprintln(p.w, Suggestion(r.NewNetwork, "a new router"))
	fmt.Fprintf(p.w, "Channels load: %s\n", spectrum.Summary(r.Loads))
}

// Suggestion formats a ranked channel list for what.
func Suggestion(channels []spectrum.Channel, what string) string {
	if len(channels) == 0 {
		return fmt.Sprintf("Cannot suggest a good channel for %s", what)
	}
	others := make([]string, 0, len(channels)-1)
	for _, c := range channels[1:] {
		others = append(others, strconv.Itoa(int(c)))
	}
	return fmt.Sprintf("The best channel for %s is %d (or maybe %s)", what, channels[0], strings.Join(others, ", "))
}

// Report prints the table, followed by the suggestions when suggest is set.
func (p *Printer) Report(r spectrum.Report, suggest bool) {
	p.AccessPoints(r)
	if suggest {
		fmt.Fprintln(p.w)
		p.Suggestions(r)
	}
}

// ClearScreen clears the terminal and moves the cursor home.
func ClearScreen(w io.Writer) {
	termenv.NewOutput(w).ClearScreen()
}
