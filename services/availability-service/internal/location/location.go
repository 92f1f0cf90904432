package location

import (
	"cmp"
	"slices"
	"strings"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

const Fallback = "Location to be confirmed"

// Annotator resolves the display location for a date. A dated, non-default
// location covering the date wins over the default one.
type Annotator struct {
	dated []model.ProviderLocation
	def   *model.ProviderLocation
}

func NewAnnotator(locations []model.ProviderLocation) *Annotator {
	a := &Annotator{}
	for _, l := range locations {
		if l.IsDefault {
			if a.def == nil || l.ID > a.def.ID {
				a.def = &l
			}
			continue
		}
		a.dated = append(a.dated, l)
	}
	// Latest start first, then greatest ID; a nil start sorts last.
	slices.SortFunc(a.dated, func(x, y model.ProviderLocation) int {
		switch {
		case x.StartDate == nil && y.StartDate == nil:
		case x.StartDate == nil:
			return 1
		case y.StartDate == nil:
			return -1
		default:
			if c := y.StartDate.Compare(*x.StartDate); c != 0 {
				return c
			}
		}
		return cmp.Compare(y.ID, x.ID)
	})
	return a
}

// Active returns the location in effect on d.
func (a *Annotator) Active(d tz.Date) (model.ProviderLocation, bool) {
	for _, l := range a.dated {
		if l.StartDate == nil && l.EndDate == nil {
			// An undated non-default row is not tied to any range.
			continue
		}
		from := tz.Date{Year: 1, Month: 1, Day: 1}
		if l.StartDate != nil {
			from = *l.StartDate
		}
		if d.Within(from, l.EndDate) {
			return l, true
		}
	}
	if a.def != nil {
		return *a.def, true
	}
	return model.ProviderLocation{}, false
}

// Display formats the active location for d, or Fallback.
func (a *Annotator) Display(d tz.Date) string {
	l, ok := a.Active(d)
	if !ok {
		return Fallback
	}
	if s := Format(l); s != "" {
		return s
	}
	return Fallback
}

// Format renders "city[, state][, country][ - description]".
func Format(l model.ProviderLocation) string {
	var parts []string
	for _, p := range []string{l.City, l.StateProvince, l.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	out := strings.Join(parts, ", ")
	if desc := strings.TrimSpace(l.Description); desc != "" {
		if out == "" {
			return desc
		}
		out += " - " + desc
	}
	return out
}
