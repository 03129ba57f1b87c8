// =============================================================================
// Depot View - Terminal Preview
// =============================================================================
//
// Renders the supplier tree as an indented, styled listing for the show
// command.
//
// =============================================================================

// Package preview renders an aggregated supplier tree for the terminal.
package preview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ginjaninja78/depotview/internal/hierarchy"
)

// Catppuccin Mocha colors.
const (
	colorBlue     lipgloss.Color = "#89b4fa"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
)

// EmptyMessage is rendered for a tree without jobs.
const EmptyMessage = "No jobs found"

// Options control the preview.
type Options struct {
	// DateFormat is the layout dates are shown with. Default: "2006-01-02".
	DateFormat string

	// ShowJobs lists the source rows of every EWC code group.
	ShowJobs bool

	// Renderer renders the styles. Default: lipgloss.DefaultRenderer().
	Renderer *lipgloss.Renderer
}

type styles struct {
	supplier lipgloss.Style
	depot    lipgloss.Style
	waste    lipgloss.Style
	code     lipgloss.Style
	meta     lipgloss.Style
	warn     lipgloss.Style
	text     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		supplier: r.NewStyle().Foreground(colorBlue).Bold(true),
		depot:    r.NewStyle().Foreground(colorGreen),
		waste:    r.NewStyle().Foreground(colorPeach),
		code:     r.NewStyle().Foreground(colorText).Bold(true),
		meta:     r.NewStyle().Foreground(colorOverlay1),
		warn:     r.NewStyle().Foreground(colorYellow),
		text:     r.NewStyle().Foreground(colorText),
	}
}

// Render draws the groups as an indented tree, one line per group.
func Render(groups []hierarchy.SupplierGroup, opts Options) string {
	if opts.DateFormat == "" {
		opts.DateFormat = "2006-01-02"
	}
	if opts.Renderer == nil {
		opts.Renderer = lipgloss.DefaultRenderer()
	}
	st := newStyles(opts.Renderer)

	if len(groups) == 0 {
		return st.meta.Render(EmptyMessage) + "\n"
	}

	var b strings.Builder
	for _, s := range groups {
		line := st.supplier.Render(blank(s.SupplierName)) + " " + st.meta.Render(fmt.Sprintf("[span %d]", s.Span))
		if s.LicenseNumber != "" {
			line += " " + st.text.Render("licence "+s.LicenseNumber)
		}
		if s.LicenseExpiry != nil {
			line += " " + st.meta.Render("exp "+s.LicenseExpiry.Format(opts.DateFormat))
		}
		writeLine(&b, 0, line)

		for _, d := range s.Depots {
			writeLine(&b, 1, "▸ "+st.depot.Render(blank(d.DepotDispose))+" "+st.meta.Render(fmt.Sprintf("[span %d]", d.Span)))

			for _, w := range d.WasteTypes {
				writeLine(&b, 2, "▸ "+st.waste.Render(blank(w.WasteType))+" "+st.meta.Render(fmt.Sprintf("[span %d]", w.Span)))

				for _, e := range w.EwcCodes {
					writeLine(&b, 3, st.code.Render(blank(e.EwcCode))+"  "+
						serviceRange(st, e.FirstService, e.LastService, opts.DateFormat)+"  "+
						st.meta.Render(fmt.Sprintf("(%d jobs)", len(e.Jobs))))

					if opts.ShowJobs {
						for _, job := range e.Jobs {
							writeLine(&b, 4, st.meta.Render(fmt.Sprintf("row %d", job.RowNumber))+" "+
								st.text.Render(formatDate(job.DeliveryDate, opts.DateFormat)))
						}
					}
				}
			}
		}
	}

	b.WriteString(st.meta.Render(fmt.Sprintf("%d supplier(s), %d EWC group(s), %d job(s)",
		len(groups), hierarchy.CountLeaves(groups), hierarchy.CountJobs(groups))))
	b.WriteString("\n")

	return b.String()
}

func writeLine(b *strings.Builder, level int, line string) {
	b.WriteString(strings.Repeat("  ", level))
	b.WriteString(line)
	b.WriteString("\n")
}

func serviceRange(st styles, first, last *time.Time, layout string) string {
	if first == nil {
		return st.warn.Render("no service dates")
	}
	return st.text.Render(first.Format(layout) + " → " + last.Format(layout))
}

func formatDate(t *time.Time, layout string) string {
	if t == nil {
		return "-"
	}
	return t.Format(layout)
}

// blank makes empty grouping keys visible.
func blank(s string) string {
	if s == "" {
		return "(blank)"
	}
	return s
}
