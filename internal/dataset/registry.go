package dataset

import (
	"fmt"
	"sort"
	"time"
)

// FirstSeenLayout is the date format of the reference dataset.
const FirstSeenLayout = "2006-01-02"

// Registry maps identifiers to the date they were first observed. It is read-only after LoadRegistry.
type Registry struct {
	dates map[string]time.Time
}

// LoadRegistry parses the reference mapping. Any unparsable date fails the load.
func LoadRegistry(raw map[string]string) (*Registry, error) {
	dates := make(map[string]time.Time, len(raw))
	for id, s := range raw {
		d, err := time.Parse(FirstSeenLayout, s)
		if err != nil {
			return nil, fmt.Errorf("first-seen %s: invalid date %q: %w", id, s, err)
		}
		dates[id] = d
	}
	return &Registry{dates: dates}, nil
}

// Lookup returns the first-seen date for id.
func (r *Registry) Lookup(id string) (time.Time, bool) {
	d, ok := r.dates[id]
	return d, ok
}

func (r *Registry) Len() int {
	return len(r.dates)
}

// Identifiers returns every registered identifier in ascending order.
func (r *Registry) Identifiers() []string {
	ids := make([]string, 0, len(r.dates))
	for id := range r.dates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
