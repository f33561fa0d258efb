// ABOUTME: Category derivation for feed items
// ABOUTME: The current rule emits only the publication year

package normalize

// Categories returns the category set for an item: the year, when well formed.
func Categories(year string) []string {
	return uniqueYears(year)
}

func uniqueYears(values ...string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if !ValidYear(v) || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
