package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hardened-user/zabbix-check-status/internal/models"
)

// Markdown renders a run summary as a markdown document
func Markdown(s *models.RunSummary) string {
	var b strings.Builder

	// Header
	b.WriteString("# Zabbix Status Report\n\n")
	b.WriteString(fmt.Sprintf("**Run:** %s\n", s.ID))
	b.WriteString(fmt.Sprintf("**Started:** %s\n", s.StartedAt.Format("2006-01-02 15:04:05")))
	if s.CompletedAt != nil {
		b.WriteString(fmt.Sprintf("**Elapsed:** %s\n", s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond)))
	}
	b.WriteString(fmt.Sprintf("**Status:** %s\n\n", s.Status))

	// Jobs section
	b.WriteString("## Jobs\n\n")
	if len(s.Jobs) > 0 {
		b.WriteString("| Job | Hosts | Broken | Excluded | Disabled | Result |\n")
		b.WriteString("|-----|-------|--------|----------|----------|--------|\n")
		for _, j := range s.Jobs {
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %s |\n",
				j.Name, j.HostsChecked, j.Broken, j.Excluded, j.Disabled, jobResult(j)))
		}
	} else {
		b.WriteString("None run.\n")
	}
	b.WriteString("\n")

	// Broken entities
	b.WriteString("## Broken Entities\n\n")
	writeFindingTable(&b, filterVerdict(s.Findings, models.VerdictBroken, models.VerdictDisableFailed))

	// Everything that was handled
	b.WriteString("## Excluded or Disabled\n\n")
	writeFindingTable(&b, filterVerdict(s.Findings, models.VerdictExcluded, models.VerdictDisabled, models.VerdictKept))

	return b.String()
}

func writeFindingTable(b *strings.Builder, findings []models.Finding) {
	if len(findings) == 0 {
		b.WriteString("None found.\n\n")
		return
	}
	b.WriteString("| Job | Host | Kind | ID | Name | Error | Verdict |\n")
	b.WriteString("|-----|------|------|----|------|-------|---------|\n")
	for _, f := range findings {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			f.Job, f.Host, f.Kind, f.ID, escapeCell(f.Name), escapeCell(f.Error), f.Verdict))
	}
	b.WriteString("\n")
}

func jobResult(j models.JobResult) string {
	switch {
	case j.Error != "":
		return "error: " + escapeCell(j.Error)
	case j.Failed:
		return "failed"
	}
	return "ok"
}

func filterVerdict(findings []models.Finding, verdicts ...models.Verdict) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		for _, v := range verdicts {
			if f.Verdict == v {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// escapeCell keeps table cells on one line.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
