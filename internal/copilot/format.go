package copilot

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vigil-grid/vigil/internal/analyst"
	"github.com/vigil-grid/vigil/internal/model"
)

const (
	maxTableRows  = 20
	maxCellLength = 30
)

// FormatQueryResult renders analyst rows as a markdown answer. A single
// value is shown inline, up to 20 rows as a table, and larger results as a
// count only.
func FormatQueryResult(p model.Persona, res analyst.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **Query Results**\n", p.Emoji)
	if res.Explanation != "" {
		fmt.Fprintf(&b, "\n_%s_\n", res.Explanation)
	}

	rows := res.Data
	switch {
	case len(rows) == 1 && len(rows[0]) == 1:
		for k, v := range rows[0] {
			fmt.Fprintf(&b, "\n**%s**: %v", titleCase(k), v)
		}
	case len(rows) > 0 && len(rows) <= maxTableRows:
		cols := columnOrder(rows[0], res.SQL)
		b.WriteString("\n|")
		for _, c := range cols {
			b.WriteString(" " + titleCase(c) + " |")
		}
		b.WriteString("\n|" + strings.Repeat("---|", len(cols)))
		for _, row := range rows {
			b.WriteString("\n|")
			for _, c := range cols {
				b.WriteString(" " + formatCell(row[c]) + " |")
			}
		}
	case len(rows) > maxTableRows:
		fmt.Fprintf(&b, "\nFound %d results. Showing first %d.", len(rows), maxTableRows)
	}

	fmt.Fprintf(&b, "\n\n✅ **%d rows** | Source: %s", len(rows), res.Source)
	return b.String()
}

// columnOrder lists the row's columns in the order they appear in the
// select list when it can be recovered, alphabetically otherwise.
func columnOrder(row map[string]any, sql string) []string {
	lowerSQL := strings.ToLower(sql)
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	pos := func(c string) int {
		if i := strings.Index(lowerSQL, strings.ToLower(c)); i >= 0 {
			return i
		}
		return math.MaxInt
	}
	slices.SortFunc(cols, func(a, b string) int {
		return cmp.Or(cmp.Compare(pos(a), pos(b)), cmp.Compare(a, b))
	})
	return cols
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		s := fmt.Sprint(x)
		if r := []rune(s); len(r) > maxCellLength {
			s = string(r[:maxCellLength])
		}
		return s
	}
}

func formatFloat(f float64) string {
	switch a := math.Abs(f); {
	case a >= 1e6:
		return fmt.Sprintf("$%.1fM", f/1e6)
	case a >= 1e3:
		return fmt.Sprintf("$%.0fK", f/1e3)
	default:
		return fmt.Sprintf("%.2f", f)
	}
}

// titleCase turns snake_case column names into "Title Case".
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// HelpMessage lists the kinds of questions the copilot answers.
func HelpMessage(now time.Time) string {
	days := model.FireSeasonCountdown(now).DaysRemaining
	return fmt.Sprintf(`I can help you with utility risk planning. Here's what I can answer:

🔥 **Fire Season** (%d days until June 1)
• "How many days until fire season?"
• "Show me Tier 3 fire district assets"
• "What is our fire season readiness?"

🌲 **Vegetation Management**
• "Show vegetation compliance by region"
• "What encroachments need priority attention?"
• "List non-compliant GO95 clearances"

⚡ **Asset Health**
• "Show me high-risk assets"
• "Which poles need replacement?"
• "What is the average asset health score?"

📋 **Work Orders**
• "Show work order backlog by priority"
• "What vegetation work is planned?"

🔍 **Hidden Discovery**
• "Show me the Water Treeing pattern"
• "Find rain-correlated voltage dips"
• "Which underground cables are at risk?"
`, days)
}

// money renders whole dollars with thousands separators.
func money(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}
