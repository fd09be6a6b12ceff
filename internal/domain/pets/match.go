package pets

import "strings"

// Matches evalúa el filtro en memoria (sin paginación). Lo usan el
// adapter in-memory y los tests; Postgres traduce el mismo filtro a SQL.
func (f ListFilter) Matches(p Pet) bool {
	if s := strings.TrimSpace(f.Species); s != "" && !strings.EqualFold(p.Species, s) {
		return false
	}
	if b := strings.TrimSpace(f.Breed); b != "" && !containsFold(p.Breed, b) {
		return false
	}
	if f.MinAge != nil && p.Age < *f.MinAge {
		return false
	}
	if f.MaxAge != nil && p.Age > *f.MaxAge {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" && !containsFold(p.Name, q) && !containsFold(p.Breed, q) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
