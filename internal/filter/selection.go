package filter

// Selection is the set of filters the user has ticked for one photo.
// Insertion order is irrelevant: Active always reports catalog order.
// It is not safe for concurrent use.
type Selection struct {
	catalog  *Catalog
	selected map[string]bool
}

// NewSelection returns an empty selection over c.
func NewSelection(c *Catalog) *Selection {
	return &Selection{catalog: c, selected: make(map[string]bool)}
}

// DefaultSelection returns a selection with the catalog's defaults ticked.
func DefaultSelection(c *Catalog) *Selection {
	s := NewSelection(c)
	for _, id := range c.Defaults() {
		s.selected[id] = true
	}
	return s
}

// Catalog returns the catalog the selection draws from.
func (s *Selection) Catalog() *Catalog { return s.catalog }

// Select ticks the given filters. Unknown IDs leave the selection unchanged.
func (s *Selection) Select(ids ...string) error {
	if _, err := s.catalog.Resolve(ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.selected[id] = true
	}
	return nil
}

// Toggle flips one filter and reports whether it is now selected.
func (s *Selection) Toggle(id string) (bool, error) {
	if _, ok := s.catalog.Lookup(id); !ok {
		return false, ErrUnknownFilter
	}
	if s.selected[id] {
		delete(s.selected, id)
		return false, nil
	}
	s.selected[id] = true
	return true, nil
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool { return s.selected[id] }

// Len is the number of selected filters.
func (s *Selection) Len() int { return len(s.selected) }

// Empty reports whether nothing is selected. Generation needs at least one filter.
func (s *Selection) Empty() bool { return len(s.selected) == 0 }

// Clear deselects everything.
func (s *Selection) Clear() { clear(s.selected) }

// Active returns the selected filters in catalog order.
func (s *Selection) Active() []Option {
	out := make([]Option, 0, len(s.selected))
	for _, o := range s.catalog.options {
		if s.selected[o.ID] {
			out = append(out, o)
		}
	}
	return out
}

// IDs returns the selected IDs in catalog order.
func (s *Selection) IDs() []string {
	active := s.Active()
	ids := make([]string, len(active))
	for i, o := range active {
		ids[i] = o.ID
	}
	return ids
}

// Group is a category heading with its selected filters.
type Group struct {
	Category Category
	Options  []Option
}

// Grouped returns the selection grouped by category, categories ordered by
// their first appearance in the catalog. Uncategorised filters (CITY) form
// a single group with an empty category.
func (s *Selection) Grouped() []Group {
	var groups []Group
	pos := make(map[Category]int)
	for _, o := range s.Active() {
		i, ok := pos[o.Category]
		if !ok {
			i = len(groups)
			pos[o.Category] = i
			groups = append(groups, Group{Category: o.Category})
		}
		groups[i].Options = append(groups[i].Options, o)
	}
	return groups
}
