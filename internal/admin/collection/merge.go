package collection

import "strings"

// placeholderIDs are the literal strings a form or link renders for a missing id.
var placeholderIDs = map[string]struct{}{
	"undefined": {},
	"null":      {},
}

// ValidID reports whether id may be sent to the API.
func ValidID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	_, placeholder := placeholderIDs[strings.ToLower(id)]
	return !placeholder
}

// Upsert replaces the entry with item's id in place or appends item.
func Upsert[T any](items []T, item T, id func(T) string) []T {
	if out, ok := Replace(items, item, id); ok {
		return out
	}
	return append(items, item)
}

// Replace swaps the entry with item's id in place. It reports false and leaves items untouched on a miss.
func Replace[T any](items []T, item T, id func(T) string) ([]T, bool) {
	key := id(item)
	for i := range items {
		if id(items[i]) == key {
			items[i] = item
			return items, true
		}
	}
	return items, false
}

// Remove drops the first entry with the given id.
func Remove[T any](items []T, key string, id func(T) string) ([]T, bool) {
	for i := range items {
		if id(items[i]) == key {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}
