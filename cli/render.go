// Package cli renders advisor results for the terminal.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"reward-advisor/domain"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")
	colorRed    = lipgloss.Color("#D14D41")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	cellStyle   = lipgloss.NewStyle().Foreground(colorText)
	borderStyle = lipgloss.NewStyle().Foreground(colorBorder)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	moneyStyle  = lipgloss.NewStyle().Foreground(colorGreen)
)

// Table is a bordered text table. The first column is left aligned, the rest
// right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)
	return box.Render(titleStyle.Render(title))
}

func RenderTable(t Table) string {
	cols := len(t.Headers)
	for _, r := range t.Rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	measure(t.Headers)
	for _, r := range t.Rows {
		measure(r)
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, cols)
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return borderStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
	}
	line := func(row []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(borderStyle.Render("│"))
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				cell += pad
			} else {
				cell = pad + cell
			}
			b.WriteString(style.Render(" " + cell + " "))
			b.WriteString(borderStyle.Render("│"))
		}
		return b.String() + "\n"
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, headerStyle))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for _, r := range t.Rows {
		b.WriteString(line(r, cellStyle))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

func Money(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func Percent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

func Muted(s string) string { return mutedStyle.Render(s) }

func Highlight(s string) string { return moneyStyle.Render(s) }

// PriorityLabel colors a priority by urgency.
func PriorityLabel(p domain.Priority) string {
	style := cellStyle
	switch p {
	case domain.PriorityUrgent:
		style = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	case domain.PriorityHigh:
		style = lipgloss.NewStyle().Foreground(colorOrange)
	case domain.PriorityLow:
		style = mutedStyle
	}
	return style.Render(string(p))
}

func CardTable(calcs []domain.RewardCalculation) string {
	t := Table{
		Title:   "Cards ranked by net value",
		Headers: []string{"Card", "Rate", "Rewards", "Fee share", "Net"},
	}
	for _, c := range calcs {
		name := c.CardName
		if c.CapApplied {
			name += " (capped)"
		}
		t.Rows = append(t.Rows, []string{name, Percent(c.EffectiveRate), Money(c.GrossReward), Money(c.AnnualFeeAmortized), Money(c.NetValue)})
	}
	return RenderTable(t)
}

func PlanTable(plan domain.PayoffPlan) string {
	t := Table{
		Title:   fmt.Sprintf("%s plan (%s ordering)", plan.Strategy, plan.Basis),
		Headers: []string{"Debt", "Starting", "Interest", "Total paid", "Paid off"},
	}
	for _, d := range plan.Debts {
		t.Rows = append(t.Rows, []string{d.Name, Money(d.StartingBalance), Money(d.InterestPaid), Money(d.TotalPaid), fmt.Sprintf("month %d", d.PayoffMonth)})
	}
	return RenderTable(t)
}

func SpendingTable(a domain.SpendingAnalysis) string {
	t := Table{
		Title:   "Spending by category",
		Headers: []string{"Category", "Count", "Total", "Trend"},
	}
	for _, tr := range a.Trends {
		c := tr.Category
		t.Rows = append(t.Rows, []string{string(c), fmt.Sprint(a.Counts[c]), Money(a.Breakdown[c]), string(tr.Trend)})
	}
	return RenderTable(t)
}

func AnomalyTable(anomalies []domain.SpendingAnomaly) string {
	if len(anomalies) == 0 {
		return ""
	}
	t := Table{
		Title:   "Anomalies",
		Headers: []string{"Merchant", "Category", "Amount", "Mean", "Severity"},
	}
	for _, an := range anomalies {
		t.Rows = append(t.Rows, []string{an.Transaction.Merchant, string(an.Category), Money(an.Transaction.Spend()), Money(an.Mean), string(an.Severity)})
	}
	return RenderTable(t)
}

func RecommendationTable(recs []domain.Recommendation) string {
	t := Table{
		Title:   "Recommendations",
		Headers: []string{"Title", "Type", "Benefit/yr", "Confidence", "Priority"},
	}
	for _, r := range recs {
		t.Rows = append(t.Rows, []string{r.Title, string(r.Type), Money(r.ExpectedBenefit), fmt.Sprintf("%d", r.Confidence), PriorityLabel(r.Priority)})
	}
	return RenderTable(t)
}
