package viewquery

import (
	"net/url"
	"strconv"
	"strings"
)

// MaxPageSize caps page sizes accepted from requests.
const MaxPageSize = 100

// State is the query a staff member has selected for one module table.
type State struct {
	Search   string `json:"q,omitempty"`
	Sort     *Sort  `json:"sort,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
}

// NewState returns a State on page 1.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize}
}

// SetSearch changes the search text. A different text returns to page 1.
func (s *State) SetSearch(search string) {
	if search == s.Search {
		return
	}
	s.Search = search
	s.Page = 1
}

// SetSort changes the sort. A different sort returns to page 1.
func (s *State) SetSort(sort *Sort) {
	if sameSort(s.Sort, sort) {
		return
	}
	if sort != nil {
		copied := *sort
		sort = &copied
	}
	s.Sort = sort
	s.Page = 1
}

// ToggleSort cycles key through ascending, descending and unsorted.
func (s *State) ToggleSort(key string) {
	switch {
	case s.Sort == nil || s.Sort.Key != key:
		s.SetSort(&Sort{Key: key, Direction: Asc})
	case s.Sort.Direction == Asc:
		s.SetSort(&Sort{Key: key, Direction: Desc})
	default:
		s.SetSort(nil)
	}
}

// SetPageSize changes the page size and returns to page 1.
func (s *State) SetPageSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)
	if size == s.PageSize {
		return
	}
	s.PageSize = size
	s.Page = 1
}

// SetPage moves to page. Pages below 1 become 1.
func (s *State) SetPage(page int) {
	s.Page = max(page, 1)
}

// Query converts the state to a Query for Apply.
func (s State) Query(mode Mode) Query {
	return Query{
		Search:   s.Search,
		Sort:     s.Sort,
		Page:     max(s.Page, 1),
		PageSize: s.PageSize,
		Mode:     mode,
	}
}

// SortToken renders the sort as "key" or "-key".
func (s State) SortToken() string {
	return FormatSort(s.Sort)
}

// FormatSort renders sort as "key" for ascending or "-key" for descending.
func FormatSort(sort *Sort) string {
	if sort == nil || sort.Key == "" {
		return ""
	}
	if sort.Direction == Desc {
		return "-" + sort.Key
	}
	return sort.Key
}

// ParseSort reads a "key" or "-key" token. Blank tokens mean no sort.
func ParseSort(token string) *Sort {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if strings.HasPrefix(token, "-") {
		key := strings.TrimPrefix(token, "-")
		if key == "" {
			return nil
		}
		return &Sort{Key: key, Direction: Desc}
	}
	return &Sort{Key: token, Direction: Asc}
}

// Values encodes the state as URL query parameters.
func (s State) Values() url.Values {
	values := url.Values{}
	if strings.TrimSpace(s.Search) != "" {
		values.Set("q", s.Search)
	}
	if token := s.SortToken(); token != "" {
		values.Set("sort", token)
	}
	if s.Page > 1 {
		values.Set("page", strconv.Itoa(s.Page))
	}
	if s.PageSize > 0 {
		values.Set("pageSize", strconv.Itoa(s.PageSize))
	}
	return values
}

// Merge applies the parameters present in values on top of s, with the same page-reset rules as the setters.
func (s State) Merge(values url.Values) State {
	out := s
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	if out.Page <= 0 {
		out.Page = 1
	}
	if values.Has("q") {
		out.SetSearch(strings.TrimSpace(values.Get("q")))
	}
	if values.Has("sort") {
		out.SetSort(ParseSort(values.Get("sort")))
	}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			out.SetPageSize(size)
		}
	}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			out.SetPage(page)
		}
	}
	return out
}

func sameSort(a, b *Sort) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Equal reports whether a and b select the same rows.
func Equal(a, b State) bool {
	return a.Search == b.Search && a.Page == b.Page && a.PageSize == b.PageSize && sameSort(a.Sort, b.Sort)
}
