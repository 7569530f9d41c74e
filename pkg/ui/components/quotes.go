// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/pkg/ui/theme"
)

// QuoteRow is one venue's line on the quote board.
type QuoteRow struct {
	Venue       string
	Output      decimal.Decimal
	Fee         decimal.Decimal
	PriceImpact decimal.Decimal // fraction, 0.01 = 1%
	SpreadBps   decimal.Decimal // shortfall against the best output
	Best        bool
	// Status is empty for a quote, otherwise why the venue has none.
	Status string
}

// QuotesComponent renders the per-venue quote table.
type QuotesComponent struct {
	table  table.Model
	pair   string
	amount string
	rows   []QuoteRow
}

// NewQuotesComponent creates an empty board.
func NewQuotesComponent() *QuotesComponent {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Venue", Width: 10},
			{Title: "Output", Width: 18},
			{Title: "Fee", Width: 14},
			{Title: "Impact", Width: 9},
			{Title: "Vs best", Width: 11},
			{Title: "", Width: 24},
		}),
		table.WithHeight(6),
		table.WithFocused(true),
	)

	s := table.DefaultStyles()
	s.Header = theme.TableHeader.Padding(0, 1)
	s.Selected = theme.TableSelected.Bold(true)
	t.SetStyles(s)

	return &QuotesComponent{table: t}
}

// SetRequest labels the board, e.g. "SOL -> USDC", "1.5 SOL".
func (q *QuotesComponent) SetRequest(pair, amount string) {
	q.pair = pair
	q.amount = amount
}

// Update replaces the rows.
func (q *QuotesComponent) Update(rows []QuoteRow) {
	q.rows = rows

	tableRows := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, r.cells())
	}
	q.table.SetRows(tableRows)
}

// Rows returns the rows currently shown.
func (q *QuotesComponent) Rows() []QuoteRow {
	return q.rows
}

// HandleKey forwards navigation keys to the table.
func (q *QuotesComponent) HandleKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	q.table, cmd = q.table.Update(msg)
	return cmd
}

func (r QuoteRow) cells() table.Row {
	if r.Status != "" {
		return table.Row{r.Venue, "-", "-", "-", "-", r.Status}
	}

	mark := ""
	if r.Best {
		mark = "★ best"
	}
	return table.Row{
		r.Venue,
		r.Output.String(),
		r.Fee.String(),
		r.PriceImpact.Shift(2).StringFixed(2) + "%",
		r.SpreadBps.StringFixed(1) + " bps",
		mark,
	}
}

// View renders the component.
func (q *QuotesComponent) View() string {
	var b strings.Builder
	b.WriteString(theme.Heading.Render("QUOTES"))
	if q.pair != "" {
		b.WriteString(theme.Muted.Render(fmt.Sprintf("  %s  •  %s", q.pair, q.amount)))
	}
	b.WriteString("\n\n")

	if len(q.rows) == 0 {
		b.WriteString(theme.Muted.Render("  Waiting for quotes..."))
		return b.String()
	}

	b.WriteString(q.table.View())
	b.WriteString("\n")

	for _, r := range q.rows {
		if r.Best {
			b.WriteString(theme.Best.Render(fmt.Sprintf("  Route via %s for %s", r.Venue, r.Output)))
			break
		}
	}
	return b.String()
}
