package collection

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Endpoint locates one collection on the CRM API.
type Endpoint struct {
	// Collection is the path of the collection relative to the API root, e.g. "customers".
	Collection string
	// PageSubpath is appended to Collection for page requests when the API exposes a separate route.
	PageSubpath string
	// ListKey names the array in {"<ListKey>": [...]} list bodies.
	ListKey string
	// ItemKey names the object in {"<ItemKey>": {...}} single bodies.
	ItemKey string
	// PageParam and LimitParam default to "page" and "limit".
	PageParam  string
	LimitParam string
}

func (e Endpoint) pageParam() string {
	if e.PageParam != "" {
		return e.PageParam
	}
	return "page"
}

func (e Endpoint) limitParam() string {
	if e.LimitParam != "" {
		return e.LimitParam
	}
	return "limit"
}

// Pagination describes the server page currently loaded.
type Pagination struct {
	Page         int `json:"page"`
	Limit        int `json:"limit"`
	TotalPages   int `json:"totalPages"`
	TotalRecords int `json:"totalRecords"`
}

// TotalPagesFor returns ceil(records/limit), never below floor.
func TotalPagesFor(records, limit, floor int) int {
	pages := 0
	if limit > 0 && records > 0 {
		pages = int(math.Ceil(float64(records) / float64(limit)))
	}
	if pages < floor {
		pages = floor
	}
	return pages
}

// listEntries extracts list entries from a bare array, {data: [...]}, {<key>: [...]},
// {items: [...]} or {data: {<key>|items: [...]}}. Any other shape yields no entries.
func listEntries(body any, key string) []Record {
	switch value := body.(type) {
	case []any:
		return asRecords(value)
	case map[string]any:
		for _, candidate := range listKeys(key) {
			if arr, ok := value[candidate].([]any); ok {
				return asRecords(arr)
			}
		}
		if nested, ok := value["data"].(map[string]any); ok {
			for _, candidate := range listKeys(key) {
				if candidate == "data" {
					continue
				}
				if arr, ok := nested[candidate].([]any); ok {
					return asRecords(arr)
				}
			}
		}
	}
	return []Record{}
}

func listKeys(key string) []string {
	keys := []string{"data"}
	if key = strings.TrimSpace(key); key != "" && key != "data" {
		keys = append(keys, key)
	}
	return append(keys, "items", "results")
}

// singleEntry extracts one object from {data: {...}}, {<key>: {...}} or the body itself.
func singleEntry(body any, key string) (Record, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, false
	}
	if nested, ok := obj["data"].(map[string]any); ok {
		if inner, ok := nested[key].(map[string]any); ok && key != "" {
			return Record(inner), true
		}
		return Record(nested), true
	}
	if key != "" {
		if nested, ok := obj[key].(map[string]any); ok {
			return Record(nested), true
		}
	}
	return Record(obj), true
}

// pageMeta reads pagination fields from {pagination: {...}}, {meta: {...}}, {data: {...}} or the top level.
// Missing fields fall back to the request and the number of decoded entries.
func pageMeta(body any, page, limit, count, floor int) Pagination {
	out := Pagination{Page: page, Limit: limit}
	var sources []map[string]any
	if obj, ok := body.(map[string]any); ok {
		for _, key := range []string{"pagination", "meta", "data"} {
			if nested, ok := obj[key].(map[string]any); ok {
				sources = append(sources, nested)
			}
		}
		sources = append(sources, obj)
	}

	totalRecords, hasRecords := -1, false
	totalPages, hasPages := 0, false
	for _, src := range sources {
		if v, ok := intField(src, "page", "currentPage"); ok && v > 0 {
			out.Page = v
		}
		if v, ok := intField(src, "limit", "pageSize", "perPage"); ok && v > 0 {
			out.Limit = v
		}
		if !hasRecords {
			if v, ok := intField(src, "totalRecords", "total", "totalItems", "totalCount", "count"); ok && v >= 0 {
				totalRecords, hasRecords = v, true
			}
		}
		if !hasPages {
			if v, ok := intField(src, "totalPages", "pages", "pageCount"); ok && v >= 0 {
				totalPages, hasPages = v, true
			}
		}
	}
	if !hasRecords {
		totalRecords = count
	}
	out.TotalRecords = totalRecords
	if hasPages {
		out.TotalPages = totalPages
		if out.TotalPages < floor {
			out.TotalPages = floor
		}
	} else {
		out.TotalPages = TotalPagesFor(totalRecords, out.Limit, floor)
	}
	return out
}

func intField(src map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch value := src[key].(type) {
		case json.Number:
			if f, err := value.Float64(); err == nil {
				return int(f), true
			}
		case float64:
			return int(value), true
		case int:
			return value, true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
