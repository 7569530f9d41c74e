package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fd1az/swap-router/pkg/ui/theme"
)

// VenueStatus summarizes one registered venue.
type VenueStatus struct {
	Name    string
	Enabled bool
	Errors  int
}

// VenuesComponent renders venue state and error counts.
type VenuesComponent struct {
	venues map[string]VenueStatus
}

func NewVenuesComponent() *VenuesComponent {
	return &VenuesComponent{venues: make(map[string]VenueStatus)}
}

// Update replaces one venue's status.
func (v *VenuesComponent) Update(status VenueStatus) {
	v.venues[status.Name] = status
}

// TotalErrors sums errors across venues.
func (v *VenuesComponent) TotalErrors() int {
	total := 0
	for _, s := range v.venues {
		total += s.Errors
	}
	return total
}

// View renders the component.
func (v *VenuesComponent) View() string {
	var b strings.Builder
	b.WriteString(theme.Heading.Render("VENUES"))
	b.WriteString("\n\n")

	if len(v.venues) == 0 {
		b.WriteString(theme.Muted.Render("  No venues registered"))
		return b.String()
	}

	names := make([]string, 0, len(v.venues))
	for name := range v.venues {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := v.venues[name]
		state := theme.Positive.Render("● enabled ")
		if !s.Enabled {
			state = theme.Muted.Render("○ disabled")
		}
		errs := theme.Muted.Render("0 errors")
		if s.Errors > 0 {
			errs = theme.Negative.Render(fmt.Sprintf("%d errors", s.Errors))
		}
		b.WriteString(fmt.Sprintf("  %-10s %s  %s\n", name, state, errs))
	}
	return b.String()
}
