package storage

import "fmt"

// MatchesFilter reports whether metadata carries every key/value pair in
// filter. Values are compared by their printed form so numbers decoded from
// JSON match integer filters.
func MatchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
