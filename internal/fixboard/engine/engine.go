// Package engine computes the visible slice of the issue list. It is pure
// data-in/data-out: callers own the fetched collection and the view
// parameters, the engine only derives what a renderer should show.
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yshiraki/fixboard/internal/fixboard/issue"
)

// Field selects the sort column.
type Field string

const (
	FieldStatus    Field = "status"
	FieldPriority  Field = "priority"
	FieldTitle     Field = "title"
	FieldCategory  Field = "category"
	FieldAssignee  Field = "assignee"
	FieldDueDate   Field = "due_date"
	FieldCreatedAt Field = "created_at"
)

// Fields lists the sortable columns in display order.
func Fields() []Field {
	return []Field{FieldStatus, FieldPriority, FieldTitle, FieldCategory,
		FieldAssignee, FieldDueDate, FieldCreatedAt}
}

// ParseField validates free-form sort field input.
func ParseField(raw string) (Field, error) {
	f := Field(strings.TrimSpace(raw))
	for _, known := range Fields() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q (expected one of %s)", raw, joinFields())
}

func joinFields() string {
	var names []string
	for _, f := range Fields() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// Order is the sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseOrder validates free-form sort direction input.
func ParseOrder(raw string) (Order, error) {
	switch o := Order(strings.TrimSpace(raw)); o {
	case Ascending, Descending:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (expected asc or desc)", raw)
	}
}

// Flip returns the opposite direction.
func (o Order) Flip() Order {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// DefaultOrder is the direction a freshly selected sort field starts in:
// ascending everywhere except created_at, which keeps the backend's
// newest-first default view.
func DefaultOrder(field Field) Order {
	if field == FieldCreatedAt {
		return Descending
	}
	return Ascending
}

// PageSizes are the recognized records-per-page settings.
var PageSizes = []int{10, 20, 50}

// ValidPageSize reports whether n is a recognized page size.
func ValidPageSize(n int) bool {
	for _, size := range PageSizes {
		if n == size {
			return true
		}
	}
	return false
}

// Query bundles the view parameters a single computation depends on.
// An empty Status means "all statuses".
type Query struct {
	Status   issue.Status
	Search   string
	SortBy   Field
	Order    Order
	Page     int
	PageSize int
}

// Page is the computed slice of the list to display.
type Page struct {
	Items      []issue.Issue
	Number     int // clamped into [1, TotalPages]
	TotalPages int
	Offset     int // index of Items[0] within the filtered set
	Filtered   int // size of the filtered set before slicing
}

// Apply runs filter, sort and pagination in order and returns the page to
// display. The input slice is never mutated.
func Apply(issues []issue.Issue, q Query) Page {
	filtered := Filter(issues, q.Status, q.Search)
	Sort(filtered, q.SortBy, q.Order)
	return Paginate(filtered, q.Page, q.PageSize)
}

// Filter keeps records matching the status filter exactly and containing
// the case-folded search text in their title or description. It returns a
// fresh slice; the input is left alone.
func Filter(issues []issue.Issue, status issue.Status, search string) []issue.Issue {
	needle := strings.ToLower(strings.TrimSpace(search))

	filtered := make([]issue.Issue, 0, len(issues))
	for _, record := range issues {
		if status != "" && record.Status != status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(record.Title), needle) &&
			!strings.Contains(strings.ToLower(record.Description), needle) {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered
}

// Sort orders the slice in place on the selected field. Ties keep their
// original relative order. Status and priority sort by their workflow and
// urgency ranks. Records without a due date sort after everything in
// ascending order and before everything in descending order.
func Sort(issues []issue.Issue, field Field, order Order) {
	less := lessFunc(field)
	if less == nil {
		return
	}
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if order == Descending {
			a, b = b, a
		}
		return less(a, b)
	})
}

func lessFunc(field Field) func(a, b issue.Issue) bool {
	switch field {
	case FieldStatus:
		return func(a, b issue.Issue) bool { return a.Status.Rank() < b.Status.Rank() }
	case FieldPriority:
		return func(a, b issue.Issue) bool { return a.Priority.Rank() < b.Priority.Rank() }
	case FieldTitle:
		return func(a, b issue.Issue) bool { return a.Title < b.Title }
	case FieldCategory:
		return func(a, b issue.Issue) bool { return a.Category < b.Category }
	case FieldAssignee:
		return func(a, b issue.Issue) bool { return a.Assignee < b.Assignee }
	case FieldCreatedAt:
		return func(a, b issue.Issue) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case FieldDueDate:
		// A missing date is "greater" than any present one, so it lands
		// last ascending and first descending.
		return func(a, b issue.Issue) bool {
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			default:
				return a.DueDate.Before(*b.DueDate)
			}
		}
	default:
		return nil
	}
}

// Paginate slices the filtered set. A requested page outside
// [1, totalPages] is clamped silently rather than producing an empty
// slice beyond bounds.
func Paginate(filtered []issue.Issue, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = PageSizes[0]
	}

	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return Page{
		Items:      filtered[start:end],
		Number:     page,
		TotalPages: totalPages,
		Offset:     start,
		Filtered:   len(filtered),
	}
}

// RowNumber returns the displayed "#" for a record: its 1-based position
// in the full fetched collection, independent of any active filter or
// sort. Returns 0 when the record is not in the collection.
func RowNumber(collection []issue.Issue, id string) int {
	for i, record := range collection {
		if record.ID == id {
			return i + 1
		}
	}
	return 0
}
