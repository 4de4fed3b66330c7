// Package query implements the list contract shared by every collection:
// AND-composed filters, case-insensitive substring search, inclusive
// calendar-date bounds, whitelisted sorting and page/pageSize pagination
// with a pre-pagination total.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/kirychukyurii/hostdesk/internal/model"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 500
)

// Sort directions
const (
	Asc  = "asc"
	Desc = "desc"
)

// Params holds the parameters common to every list query.
// Zero values mean "not set".
type Params struct {
	Page       int
	PageSize   int
	SearchText string
	StartDate  model.Date
	EndDate    model.Date
	SortBy     string
	SortOrder  string
}

// Normalize applies defaults and caps the page size at maxPageSize.
// It fails on negative paging values and inverted date bounds.
func (p Params) Normalize(defaultPageSize, maxPageSize int) (Params, error) {
	if p.Page < 0 {
		return p, fmt.Errorf("page must be positive")
	}
	if p.PageSize < 0 {
		return p, fmt.Errorf("pageSize must be positive")
	}
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.PageSize == 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.StartDate > p.EndDate {
		return p, fmt.Errorf("startTime must not be after endTime")
	}
	p.SortOrder = strings.ToLower(p.SortOrder)
	if p.SortOrder != "" && p.SortOrder != Asc && p.SortOrder != Desc {
		return p, fmt.Errorf("sortOrder must be %q or %q", Asc, Desc)
	}
	return p, nil
}

// Predicate reports whether a record matches one criterion
type Predicate[T any] func(T) bool

// Filter returns the records matching every predicate, in input order.
// Nil predicates are criteria that were not supplied and are skipped.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}

	out := make([]T, 0, len(items))
next:
	for _, item := range items {
		for _, p := range active {
			if !p(item) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

// Paginate returns the slice [(page-1)*size, page*size) of items.
// Pages past the end yield an empty, non-nil slice.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	// Compare page numbers, not offsets: (page-1)*size overflows for huge pages
	pages := len(items) / size
	if len(items)%size != 0 {
		pages++
	}
	if page > pages {
		return []T{}
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	return items[start:end]
}

// Run filters, sorts and paginates items. p must already be normalized.
func Run[T any](items []T, p Params, sorters Sorters[T], preds ...Predicate[T]) (model.Page[T], error) {
	matched := Filter(items, preds...)
	if err := sorters.Sort(matched, p.SortBy, p.SortOrder); err != nil {
		return model.Page[T]{List: []T{}}, err
	}
	return model.Page[T]{
		List:  Paginate(matched, p.Page, p.PageSize),
		Total: len(matched),
	}, nil
}

// Text matches term as a case-insensitive substring of any field.
// An empty term yields a nil predicate.
func Text[T any](term string, fields func(T) []string) Predicate[T] {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	return func(item T) bool {
		for _, f := range fields(item) {
			if f != "" && strings.Contains(strings.ToLower(f), term) {
				return true
			}
		}
		return false
	}
}

// Contains matches term as a case-insensitive substring of one field
func Contains[T any](term string, field func(T) string) Predicate[T] {
	return Text(term, func(item T) []string { return []string{field(item)} })
}

// DateRange matches records whose date lies within the inclusive bounds.
// Without bounds it yields a nil predicate.
func DateRange[T any](start, end model.Date, date func(T) model.Date) Predicate[T] {
	if start.IsZero() && end.IsZero() {
		return nil
	}
	return func(item T) bool {
		return date(item).Between(start, end)
	}
}

// Equal matches records whose field equals *want. A nil want yields a nil predicate.
func Equal[T any, V comparable](want *V, field func(T) V) Predicate[T] {
	if want == nil {
		return nil
	}
	w := *want
	return func(item T) bool {
		return field(item) == w
	}
}

// EqualString matches a string field exactly; an empty want yields a nil predicate
func EqualString[T any](want string, field func(T) string) Predicate[T] {
	if want == "" {
		return nil
	}
	return func(item T) bool {
		return field(item) == want
	}
}

// Sorters maps a sortBy key to a comparison function
type Sorters[T any] map[string]func(a, b T) int

// Sort orders items in place by key. An empty key keeps natural order.
// The sort is stable so records with equal keys keep their natural order.
func (s Sorters[T]) Sort(items []T, key, order string) error {
	if key == "" {
		return nil
	}
	compare, ok := s[key]
	if !ok {
		return fmt.Errorf("unsupported sortBy %q", key)
	}
	if strings.EqualFold(order, Desc) {
		slices.SortStableFunc(items, func(a, b T) int { return compare(b, a) })
		return nil
	}
	slices.SortStableFunc(items, compare)
	return nil
}

// By builds a comparison on an ordered key
func By[T any, K cmp.Ordered](key func(T) K) func(a, b T) int {
	return func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	}
}
