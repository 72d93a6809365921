// Package alias resolves upstream station-name spellings to the
// canonical names used by the static network model. It is the small
// collaborator spec.md §6 requires: a name not present in the table
// resolves to itself.
package alias

// Table maps upstream spellings to canonical station names.
type Table struct {
	names map[string]string
}

// New builds a Table from a seed mapping. A nil or empty seed is
// valid: every upstream name then resolves to itself.
func New(seed map[string]string) *Table {
	names := make(map[string]string, len(seed))
	for k, v := range seed {
		names[k] = v
	}
	return &Table{names: names}
}

// Resolve returns the canonical name for an upstream spelling, or the
// input unchanged if it is not in the table.
func (t *Table) Resolve(name string) string {
	if t == nil {
		return name
	}
	if canonical, ok := t.names[name]; ok {
		return canonical
	}
	return name
}

// Default returns the table seeded with the handful of known upstream
// misspellings and aliases observed in the field (renamed stations,
// landmark names, a mis-typed siding). Deployments can override or
// extend this by constructing their own Table.
func Default() *Table {
	return New(map[string]string{
		"Ashton-under-Lyne":       "Ashton-Under-Lyne",
		"Ashton":                  "Ashton-Under-Lyne",
		"Deansgate Castlefield":   "Deansgate - Castlefield",
		"Deansgate":               "Deansgate - Castlefield",
		"MCUK":                    "MediaCityUK",
		"Newton Heath":            "Newton Heath and Moston",
		"Victoria Millgate Siding": "Victoria",
		"Rochdale Stn":            "Rochdale Railway Station",
		"Trafford Centre":         "The Trafford Centre",
		"intu Trafford Centre":    "The Trafford Centre",
		"Wythen. Town":            "Wythenshawe Town Centre",
	})
}
