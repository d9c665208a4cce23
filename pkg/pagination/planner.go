package pagination

// Page size bounds of the CDO v2 API.
const (
	MaxPageLimit     = 1000
	DefaultPageLimit = 25
)

// ClampLimit maps limit into [1, MaxPageLimit]. Non-positive values fall
// back to DefaultPageLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return limit
	}
}

// Plan returns the 0-based offsets needed to cover total records with pages
// of limit records: ceil(total/limit) entries, offsets[i] = i*limit.
// A non-positive total yields an empty plan.
func Plan(total, limit int) []int {
	if total <= 0 {
		return []int{}
	}
	limit = ClampLimit(limit)

	pages := (total + limit - 1) / limit
	offsets := make([]int, pages)
	for i := range offsets {
		offsets[i] = i * limit
	}
	return offsets
}

// Pages returns the number of pages Plan would produce.
func Pages(total, limit int) int {
	if total <= 0 {
		return 0
	}
	limit = ClampLimit(limit)
	return (total + limit - 1) / limit
}
