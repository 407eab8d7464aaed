package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/hardened-user/zabbix-check-status/internal/models"
)

const bannerWidth = 95

var (
	ruleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	jobStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	hostStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Printer writes banners, confirmations and summaries for a human reader
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a printer; color enables lipgloss styling
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// JobBanner opens the output of one job
func (p *Printer) JobBanner(name string) {
	p.line(ruleStyle, strings.Repeat("=", bannerWidth))
	p.line(jobStyle, "-=*=-"+center(strings.ToUpper(name), bannerWidth-10)+"-=*=-")
	p.line(ruleStyle, strings.Repeat("-", bannerWidth))
}

// HostBanner opens the output of one host
func (p *Printer) HostBanner(name string) {
	p.line(hostStyle, "---->"+center(strings.ToUpper(name), bannerWidth-10)+"<----")
}

// OK prints a success line
func (p *Printer) OK(msg string) {
	p.line(okStyle, "[OK] "+msg)
}

// Summary prints a per-job table and the overall result
func (p *Printer) Summary(s *models.RunSummary) {
	fmt.Fprintln(p.w)
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Job\tHosts\tBroken\tExcluded\tDisabled\tResult")
	fmt.Fprintln(w, "---\t-----\t------\t--------\t--------\t------")
	for _, j := range s.Jobs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n",
			j.Name, j.HostsChecked, j.Broken, j.Excluded, j.Disabled, jobResult(j))
	}
	w.Flush()

	fmt.Fprintln(p.w)
	if s.Failed() {
		p.line(failStyle, fmt.Sprintf("[!] Run %s failed", s.ID))
	} else {
		p.OK(fmt.Sprintf("Run %s completed", s.ID))
	}
}

// Delta prints the outcome of Compare
func (p *Printer) Delta(d Delta) {
	if d.Empty() {
		p.OK(fmt.Sprintf("No changes (%d still broken)", len(d.Persisting)))
		return
	}
	for _, f := range d.New {
		p.line(failStyle, fmt.Sprintf("[+] %s %s %s", f.Job, f.Host, f.Describe()))
	}
	for _, f := range d.Resolved {
		p.line(okStyle, fmt.Sprintf("[-] %s %s %s", f.Job, f.Host, f.Describe()))
	}
	fmt.Fprintf(p.w, "Summary: %d new, %d resolved, %d persisting\n", len(d.New), len(d.Resolved), len(d.Persisting))
}

func (p *Printer) line(style lipgloss.Style, s string) {
	if p.color {
		s = style.Render(s)
	}
	fmt.Fprintln(p.w, s)
}

// center pads s with spaces to width, keeping it in the middle.
func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}
