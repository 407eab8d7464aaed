package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hardened-user/zabbix-check-status/internal/models"
)

// Delta is the change in broken entities between two runs
type Delta struct {
	New        []models.Finding // broken now, not before
	Resolved   []models.Finding // broken before, not now
	Persisting []models.Finding // broken in both
}

// Empty reports whether nothing changed
func (d Delta) Empty() bool {
	return len(d.New) == 0 && len(d.Resolved) == 0
}

// Compare computes the delta of broken findings from previous to current
func Compare(previous, current *models.RunSummary) Delta {
	before := brokenByIdentity(previous)
	after := brokenByIdentity(current)

	var d Delta
	for id, f := range after {
		if _, ok := before[id]; ok {
			d.Persisting = append(d.Persisting, f)
		} else {
			d.New = append(d.New, f)
		}
	}
	for id, f := range before {
		if _, ok := after[id]; !ok {
			d.Resolved = append(d.Resolved, f)
		}
	}

	sortFindings(d.New)
	sortFindings(d.Resolved)
	sortFindings(d.Persisting)
	return d
}

// DiffMarkdown renders a delta as markdown
func DiffMarkdown(d Delta) string {
	var b strings.Builder

	b.WriteString("# Status Diff Report\n\n")
	if d.Empty() {
		b.WriteString("No changes detected.\n")
		return b.String()
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Category | Count |\n")
	b.WriteString("|----------|-------|\n")
	b.WriteString(fmt.Sprintf("| New | %d |\n", len(d.New)))
	b.WriteString(fmt.Sprintf("| Resolved | %d |\n", len(d.Resolved)))
	b.WriteString(fmt.Sprintf("| Persisting | %d |\n\n", len(d.Persisting)))

	b.WriteString("## Newly Broken\n\n")
	writeFindingTable(&b, d.New)
	b.WriteString("## Resolved\n\n")
	writeFindingTable(&b, d.Resolved)

	return b.String()
}

func brokenByIdentity(s *models.RunSummary) map[string]models.Finding {
	out := make(map[string]models.Finding)
	if s == nil {
		return out
	}
	for _, f := range s.Findings {
		if f.Verdict.Fails() {
			out[f.Identity()] = f
		}
	}
	return out
}

func sortFindings(fs []models.Finding) {
	sort.Slice(fs, func(i, j int) bool {
		return fs[i].Identity() < fs[j].Identity()
	})
}
