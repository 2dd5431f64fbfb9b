package query_test

import (
	"testing"

	"github.com/JaimeStill/landflux/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("", "runs", "r").
		Project("id", "id").
		Project("command", "command").
		Project("started_at", "startedAt")
}

func ptr(s string) *string { return &s }

func TestProjectionMapTable(t *testing.T) {
	p := testProjection()
	got := p.Table()
	want := "runs r"
	if got != want {
		t.Errorf("Table() = %q, want %q", got, want)
	}
}

func TestProjectionMapSchemaQualified(t *testing.T) {
	p := query.NewProjectionMap("public", "runs", "r")
	if got := p.From(); got != "public.runs r" {
		t.Errorf("From() = %q, want %q", got, "public.runs r")
	}
}

func TestProjectionMapAlias(t *testing.T) {
	p := testProjection()
	if got := p.Alias(); got != "r" {
		t.Errorf("Alias() = %q, want %q", got, "r")
	}
}

func TestProjectionMapColumns(t *testing.T) {
	p := testProjection()
	got := p.Columns()
	want := "r.id, r.command, r.started_at"
	if got != want {
		t.Errorf("Columns() = %q, want %q", got, want)
	}
}

func TestProjectionMapColumnList(t *testing.T) {
	p := testProjection()
	got := p.ColumnList()
	if len(got) != 3 {
		t.Fatalf("ColumnList() length = %d, want 3", len(got))
	}
	want := []string{"r.id", "r.command", "r.started_at"}
	for i, col := range got {
		if col != want[i] {
			t.Errorf("ColumnList()[%d] = %q, want %q", i, col, want[i])
		}
	}
}

func TestProjectionMapColumnLookup(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name     string
		viewName string
		want     string
	}{
		{"mapped field", "command", "r.command"},
		{"mapped camel", "startedAt", "r.started_at"},
		{"unmapped passthrough", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
		})
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
		{
			name:  "single ascending",
			input: "name",
			want:  []query.SortField{{Field: "name", Descending: false}},
		},
		{
			name:  "single descending",
			input: "-startedAt",
			want:  []query.SortField{{Field: "startedAt", Descending: true}},
		},
		{
			name:  "multiple mixed",
			input: "name,-startedAt",
			want: []query.SortField{
				{Field: "name", Descending: false},
				{Field: "startedAt", Descending: true},
			},
		},
		{
			name:  "with spaces",
			input: " name , -startedAt ",
			want: []query.SortField{
				{Field: "name", Descending: false},
				{Field: "startedAt", Descending: true},
			},
		},
		{
			name:  "empty parts skipped",
			input: "name,,startedAt",
			want: []query.SortField{
				{Field: "name", Descending: false},
				{Field: "startedAt", Descending: false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ParseSortFields(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSortFields(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	sql, args := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r"
	if sql != wantSQL {
		t.Errorf("Build() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("Build() args = %v, want empty", args)
	}
}

func TestBuilderBuildCount(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	sql, args := b.BuildCount()

	wantSQL := "SELECT COUNT(*) FROM runs r"
	if sql != wantSQL {
		t.Errorf("BuildCount() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("BuildCount() args = %v, want empty", args)
	}
}

func TestBuilderBuildPage(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p, query.SortField{Field: "startedAt", Descending: true})
	sql, args := b.BuildPage(2, 10)

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r ORDER BY r.started_at DESC LIMIT 10 OFFSET 10"
	if sql != wantSQL {
		t.Errorf("BuildPage() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("BuildPage() args = %v, want empty", args)
	}
}

func TestBuilderBuildSingle(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	sql, args := b.BuildSingle("id", "abc-123")

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r WHERE r.id = $1"
	if sql != wantSQL {
		t.Errorf("BuildSingle() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "abc-123" {
		t.Errorf("BuildSingle() args = %v, want [abc-123]", args)
	}
}

func TestBuilderWhereEquals(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	b.WhereEquals("command", "test.pdf")
	sql, args := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r WHERE r.command = $1"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "test.pdf" {
		t.Errorf("args = %v, want [test.pdf]", args)
	}
}

func TestBuilderWhereEqualsNilSkipped(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	b.WhereEquals("command", nil)
	sql, args := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilderWhereSearch(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	b.WhereSearch(ptr("test"), "command", "id")
	sql, args := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r WHERE (LOWER(r.command) LIKE LOWER($1) OR LOWER(r.id) LIKE LOWER($2))"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 2 || args[0] != "%test%" || args[1] != "%test%" {
		t.Errorf("args = %v, want [%%test%% %%test%%]", args)
	}
}

func TestBuilderWhereSearchNilSkipped(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	b.WhereSearch(nil, "command")
	_, args := b.Build()

	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilderWhereAtLeast(t *testing.T) {
	p := testProjection()

	b := query.NewBuilder(p)
	b.WhereAtLeast("startedAt", "2024-01-01")
	sql, args := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r WHERE r.started_at >= $1"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "2024-01-01" {
		t.Errorf("args = %v, want [2024-01-01]", args)
	}

	var since *string
	b = query.NewBuilder(p)
	b.WhereAtLeast("startedAt", since)
	if _, args := b.Build(); len(args) != 0 {
		t.Errorf("nil bound: args = %v, want empty", args)
	}
}

func TestBuilderMultipleConditions(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	b.WhereEquals("command", "test.pdf")
	b.WhereSearch(ptr("abc"), "id")
	sql, args := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r WHERE r.command = $1 AND (LOWER(r.id) LIKE LOWER($2))"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 2 {
		t.Errorf("args length = %d, want 2", len(args))
	}
	if args[0] != "test.pdf" {
		t.Errorf("args[0] = %v, want test.pdf", args[0])
	}
	if args[1] != "%abc%" {
		t.Errorf("args[1] = %v, want %%abc%%", args[1])
	}
}

func TestBuilderOrderByFields(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p, query.SortField{Field: "id", Descending: false})
	b.OrderByFields([]query.SortField{
		{Field: "startedAt", Descending: true},
		{Field: "command", Descending: false},
	})
	sql, _ := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r ORDER BY r.started_at DESC, r.command ASC"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
}

func TestBuilderDefaultSort(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p, query.SortField{Field: "startedAt", Descending: true})
	sql, _ := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r ORDER BY r.started_at DESC"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
}

func TestBuilderBuildCountWithConditions(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p)
	b.WhereEquals("command", "test.pdf")
	sql, args := b.BuildCount()

	wantSQL := "SELECT COUNT(*) FROM runs r WHERE r.command = $1"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "test.pdf" {
		t.Errorf("args = %v, want [test.pdf]", args)
	}
}

func TestBuilderBuildPageWithConditions(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p, query.SortField{Field: "id"})
	b.WhereSearch(ptr("report"), "command")
	sql, args := b.BuildPage(3, 25)

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r WHERE (LOWER(r.command) LIKE LOWER($1)) ORDER BY r.id ASC LIMIT 25 OFFSET 50"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "%report%" {
		t.Errorf("args = %v, want [%%report%%]", args)
	}
}

func TestBuilderOrderByUnmappedField(t *testing.T) {
	p := testProjection()
	b := query.NewBuilder(p, query.SortField{Field: "startedAt", Descending: true})
	b.OrderByFields([]query.SortField{{Field: "id; DROP TABLE runs"}, {Field: "command"}})
	sql, _ := b.Build()

	wantSQL := "SELECT r.id, r.command, r.started_at FROM runs r ORDER BY r.command ASC"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}

	b = query.NewBuilder(p, query.SortField{Field: "startedAt", Descending: true})
	b.OrderByFields([]query.SortField{{Field: "unknown"}})
	if sql, _ := b.Build(); sql != "SELECT r.id, r.command, r.started_at FROM runs r ORDER BY r.started_at DESC" {
		t.Errorf("all unmapped: sql = %q, want default order", sql)
	}
}
