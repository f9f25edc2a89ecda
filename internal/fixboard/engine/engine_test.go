package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/yshiraki/fixboard/internal/fixboard/issue"
)

func record(id, title string, opts ...func(*issue.Issue)) issue.Issue {
	r := issue.Issue{
		ID:       id,
		Title:    title,
		Status:   issue.StatusOpen,
		Priority: issue.PriorityMedium,
		Category: "デザイン",
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func withStatus(s issue.Status) func(*issue.Issue) {
	return func(r *issue.Issue) { r.Status = s }
}

func withPriority(p issue.Priority) func(*issue.Issue) {
	return func(r *issue.Issue) { r.Priority = p }
}

func withDescription(d string) func(*issue.Issue) {
	return func(r *issue.Issue) { r.Description = d }
}

func withDueDate(year int, month time.Month, day int) func(*issue.Issue) {
	return func(r *issue.Issue) {
		d := issue.NewDate(year, month, day)
		r.DueDate = &d
	}
}

func withCreatedAt(t time.Time) func(*issue.Issue) {
	return func(r *issue.Issue) { r.CreatedAt = t }
}

func ids(issues []issue.Issue) []string {
	var out []string
	for _, r := range issues {
		out = append(out, r.ID)
	}
	return out
}

func equalIDs(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilter(t *testing.T) {
	issues := []issue.Issue{
		record("a", "Fix header layout", withStatus(issue.StatusOpen)),
		record("b", "Update footer links", withStatus(issue.StatusDone), withDescription("the HEADER is fine")),
		record("c", "ヘッダーの色を修正", withStatus(issue.StatusInProgress)),
	}

	tests := []struct {
		name     string
		status   issue.Status
		search   string
		expected []string
	}{
		{
			name:     "no filter keeps everything",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "status filter is an exact enum match",
			status:   issue.StatusDone,
			expected: []string{"b"},
		},
		{
			name:     "search matches title case-insensitively",
			search:   "HEADER",
			expected: []string{"a", "b"},
		},
		{
			name:     "search matches description",
			search:   "fine",
			expected: []string{"b"},
		},
		{
			name:     "search matches multibyte titles",
			search:   "ヘッダー",
			expected: []string{"c"},
		},
		{
			name:     "status and search combine",
			status:   issue.StatusOpen,
			search:   "header",
			expected: []string{"a"},
		},
		{
			name:     "no match yields empty set",
			search:   "nonexistent",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(issues, tt.status, tt.search))
			if !equalIDs(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	issues := []issue.Issue{record("a", "one"), record("b", "two")}
	Filter(issues, issue.StatusDone, "")
	if issues[0].ID != "a" || issues[1].ID != "b" {
		t.Errorf("input slice was mutated: %v", ids(issues))
	}
}

func TestSortPriorityRankOrder(t *testing.T) {
	issues := []issue.Issue{
		record("low", "t", withPriority(issue.PriorityLow)),
		record("high", "t", withPriority(issue.PriorityHigh)),
		record("medium", "t", withPriority(issue.PriorityMedium)),
	}

	Sort(issues, FieldPriority, Ascending)
	if got, expected := ids(issues), []string{"high", "medium", "low"}; !equalIDs(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}

	Sort(issues, FieldPriority, Descending)
	if got, expected := ids(issues), []string{"low", "medium", "high"}; !equalIDs(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestSortStatusWorkflowOrder(t *testing.T) {
	issues := []issue.Issue{
		record("onhold", "t", withStatus(issue.StatusOnHold)),
		record("done", "t", withStatus(issue.StatusDone)),
		record("open", "t", withStatus(issue.StatusOpen)),
		record("review", "t", withStatus(issue.StatusPendingReview)),
		record("progress", "t", withStatus(issue.StatusInProgress)),
	}

	Sort(issues, FieldStatus, Ascending)
	expected := []string{"open", "progress", "review", "done", "onhold"}
	if got := ids(issues); !equalIDs(got, expected) {
		t.Errorf("expected workflow order %v, got %v", expected, got)
	}
}

func TestSortStability(t *testing.T) {
	// Two 高 records keep their input order and precede every 中/低 one.
	issues := []issue.Issue{
		record("medium", "t", withPriority(issue.PriorityMedium)),
		record("high-1", "t", withPriority(issue.PriorityHigh)),
		record("low", "t", withPriority(issue.PriorityLow)),
		record("high-2", "t", withPriority(issue.PriorityHigh)),
	}

	Sort(issues, FieldPriority, Ascending)
	expected := []string{"high-1", "high-2", "medium", "low"}
	if got := ids(issues); !equalIDs(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestSortMissingDueDates(t *testing.T) {
	issues := func() []issue.Issue {
		return []issue.Issue{
			record("later", "t", withDueDate(2026, time.March, 1)),
			record("none", "t"),
			record("sooner", "t", withDueDate(2026, time.January, 15)),
		}
	}

	tests := []struct {
		name     string
		order    Order
		expected []string
	}{
		{
			name:     "missing sorts last ascending",
			order:    Ascending,
			expected: []string{"sooner", "later", "none"},
		},
		{
			name:     "missing sorts first descending",
			order:    Descending,
			expected: []string{"none", "later", "sooner"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := issues()
			Sort(in, FieldDueDate, tt.order)
			if got := ids(in); !equalIDs(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSortReversalIsExact(t *testing.T) {
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	issues := []issue.Issue{
		record("b", "bravo", withCreatedAt(base.Add(time.Hour))),
		record("a", "alpha", withCreatedAt(base)),
		record("c", "charlie", withCreatedAt(base.Add(2*time.Hour))),
	}

	Sort(issues, FieldCreatedAt, Ascending)
	ascending := ids(issues)
	Sort(issues, FieldCreatedAt, Descending)
	descending := ids(issues)

	for i := range ascending {
		if ascending[i] != descending[len(descending)-1-i] {
			t.Errorf("descending is not the reverse of ascending: %v vs %v", ascending, descending)
			break
		}
	}
}

func TestPaginate(t *testing.T) {
	make25 := func() []issue.Issue {
		var issues []issue.Issue
		for i := 1; i <= 25; i++ {
			issues = append(issues, record(fmt.Sprintf("i%02d", i), "t"))
		}
		return issues
	}

	tests := []struct {
		name         string
		count        int
		page         int
		pageSize     int
		expectedPage int
		expectedLen  int
		expectedTot  int
	}{
		{
			name:         "first page is full",
			count:        25,
			page:         1,
			pageSize:     10,
			expectedPage: 1,
			expectedLen:  10,
			expectedTot:  3,
		},
		{
			name:         "last page holds the remainder",
			count:        25,
			page:         3,
			pageSize:     10,
			expectedPage: 3,
			expectedLen:  5,
			expectedTot:  3,
		},
		{
			name:         "page zero clamps to one",
			count:        25,
			page:         0,
			pageSize:     10,
			expectedPage: 1,
			expectedLen:  10,
			expectedTot:  3,
		},
		{
			name:         "page beyond the end clamps to the last page",
			count:        25,
			page:         4,
			pageSize:     10,
			expectedPage: 3,
			expectedLen:  5,
			expectedTot:  3,
		},
		{
			name:         "empty set still has one page",
			count:        0,
			page:         1,
			pageSize:     10,
			expectedPage: 1,
			expectedLen:  0,
			expectedTot:  1,
		},
		{
			name:         "larger page size",
			count:        25,
			page:         1,
			pageSize:     50,
			expectedPage: 1,
			expectedLen:  25,
			expectedTot:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := make25()[:tt.count]
			page := Paginate(filtered, tt.page, tt.pageSize)
			if page.Number != tt.expectedPage {
				t.Errorf("expected page %d, got %d", tt.expectedPage, page.Number)
			}
			if len(page.Items) != tt.expectedLen {
				t.Errorf("expected %d items, got %d", tt.expectedLen, len(page.Items))
			}
			if page.TotalPages != tt.expectedTot {
				t.Errorf("expected %d total pages, got %d", tt.expectedTot, page.TotalPages)
			}
		})
	}
}

func TestApplyNewestFirstScenario(t *testing.T) {
	// 25 records, page size 10, no filter, newest first: page 1 holds the
	// 10 most recent, page 3 the remaining 5.
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	var issues []issue.Issue
	for i := 1; i <= 25; i++ {
		issues = append(issues, record(fmt.Sprintf("i%02d", i), "t", withCreatedAt(base.Add(time.Duration(i)*time.Hour))))
	}

	q := Query{SortBy: FieldCreatedAt, Order: Descending, Page: 1, PageSize: 10}

	page1 := Apply(issues, q)
	if got, expected := ids(page1.Items), []string{"i25", "i24", "i23", "i22", "i21", "i20", "i19", "i18", "i17", "i16"}; !equalIDs(got, expected) {
		t.Errorf("page 1: expected %v, got %v", expected, got)
	}

	q.Page = 3
	page3 := Apply(issues, q)
	if got, expected := ids(page3.Items), []string{"i05", "i04", "i03", "i02", "i01"}; !equalIDs(got, expected) {
		t.Errorf("page 3: expected %v, got %v", expected, got)
	}
	if page3.Offset != 20 {
		t.Errorf("expected offset 20, got %d", page3.Offset)
	}
}

func TestDefaultOrder(t *testing.T) {
	if got := DefaultOrder(FieldTitle); got != Ascending {
		t.Errorf("expected title to default ascending, got %s", got)
	}
	if got := DefaultOrder(FieldCreatedAt); got != Descending {
		t.Errorf("expected created_at to default descending, got %s", got)
	}
}

func TestParseField(t *testing.T) {
	for _, field := range Fields() {
		got, err := ParseField(string(field))
		if err != nil {
			t.Errorf("expected %s to parse, got %v", field, err)
		}
		if got != field {
			t.Errorf("expected %s, got %s", field, got)
		}
	}
	if _, err := ParseField("updated_at"); err == nil {
		t.Error("expected an unknown field to be rejected")
	}
	if got, err := ParseField(" due_date "); err != nil || got != FieldDueDate {
		t.Errorf("expected padded input to parse, got %s, %v", got, err)
	}
}

func TestParseOrder(t *testing.T) {
	if got, err := ParseOrder("asc"); err != nil || got != Ascending {
		t.Errorf("expected asc to parse, got %s, %v", got, err)
	}
	if got, err := ParseOrder("desc"); err != nil || got != Descending {
		t.Errorf("expected desc to parse, got %s, %v", got, err)
	}
	if _, err := ParseOrder("descending"); err == nil {
		t.Error("expected an unknown order to be rejected")
	}
}

func TestValidPageSize(t *testing.T) {
	for _, size := range []int{10, 20, 50} {
		if !ValidPageSize(size) {
			t.Errorf("expected %d to be a valid page size", size)
		}
	}
	for _, size := range []int{0, 1, 15, 100} {
		if ValidPageSize(size) {
			t.Errorf("expected %d to be rejected", size)
		}
	}
}

func TestRowNumber(t *testing.T) {
	collection := []issue.Issue{record("a", "t"), record("b", "t"), record("c", "t")}

	tests := []struct {
		id       string
		expected int
	}{
		{id: "a", expected: 1},
		{id: "c", expected: 3},
		{id: "missing", expected: 0},
	}

	for _, tt := range tests {
		if got := RowNumber(collection, tt.id); got != tt.expected {
			t.Errorf("RowNumber(%q): expected %d, got %d", tt.id, tt.expected, got)
		}
	}
}
