package query

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/hostdesk/internal/model"
)

type record struct {
	ID    int
	Name  string
	Owner string
	Date  model.Date
}

func records(n int) []record {
	out := make([]record, n)
	for i := range out {
		out[i] = record{
			ID:    i + 1,
			Name:  fmt.Sprintf("host-%02d", i+1),
			Owner: fmt.Sprintf("Owner%d", i%3),
			Date:  model.Date(fmt.Sprintf("2024-01-%02d", i%28+1)),
		}
	}
	return out
}

func TestParamsNormalize(t *testing.T) {
	tests := []struct {
		name         string
		in           Params
		wantPage     int
		wantPageSize int
		wantErr      bool
	}{
		{name: "defaults", in: Params{}, wantPage: 1, wantPageSize: 10},
		{name: "explicit", in: Params{Page: 3, PageSize: 25}, wantPage: 3, wantPageSize: 25},
		{name: "page size capped", in: Params{PageSize: 5000}, wantPage: 1, wantPageSize: 500},
		{name: "max int page size capped", in: Params{PageSize: math.MaxInt}, wantPage: 1, wantPageSize: 500},
		{name: "max int page kept", in: Params{Page: math.MaxInt}, wantPage: math.MaxInt, wantPageSize: 10},
		{name: "negative page", in: Params{Page: -1}, wantErr: true},
		{name: "negative page size", in: Params{PageSize: -10}, wantErr: true},
		{name: "inverted dates", in: Params{StartDate: "2024-02-01", EndDate: "2024-01-01"}, wantErr: true},
		{name: "bad sort order", in: Params{SortOrder: "sideways"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize(DefaultPageSize, MaxPageSize)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantPageSize, got.PageSize)
		})
	}
}

func TestRunScenarioThirdPage(t *testing.T) {
	page, err := Run(records(25), Params{Page: 3, PageSize: 10}, nil)
	require.NoError(t, err)

	assert.Len(t, page.List, 5)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 21, page.List[0].ID)
}

func TestRunPageBeyondEnd(t *testing.T) {
	page, err := Run(records(7), Params{Page: 9, PageSize: 10}, nil)
	require.NoError(t, err)

	assert.NotNil(t, page.List)
	assert.Empty(t, page.List)
	assert.Equal(t, 7, page.Total)
}

func TestRunEmptyCollection(t *testing.T) {
	page, err := Run([]record{}, Params{Page: 1, PageSize: 10}, nil)
	require.NoError(t, err)

	assert.NotNil(t, page.List)
	assert.Empty(t, page.List)
	assert.Zero(t, page.Total)
}

func TestPagesConcatenateToFilteredSet(t *testing.T) {
	items := records(53)
	owner := Contains("owner1", func(r record) string { return r.Owner })
	want := Filter(items, owner)

	for size := 1; size <= 20; size++ {
		var got []record
		first, err := Run(items, Params{Page: 1, PageSize: size}, nil, owner)
		require.NoError(t, err)
		pages := (first.Total + size - 1) / size

		for p := 1; p <= pages; p++ {
			page, err := Run(items, Params{Page: p, PageSize: size}, nil, owner)
			require.NoError(t, err)
			assert.Equal(t, first.Total, page.Total, "total must not depend on page")
			got = append(got, page.List...)
		}
		assert.Equal(t, want, got, "page size %d", size)
	}
}

func TestFilterIsLogicalAnd(t *testing.T) {
	items := records(30)
	byOwner := EqualString("Owner2", func(r record) string { return r.Owner })
	byDate := DateRange[record]("2024-01-01", "2024-01-10", func(r record) model.Date { return r.Date })

	got := Filter(items, byOwner, nil, byDate)
	require.NotEmpty(t, got)
	for _, r := range got {
		assert.Equal(t, "Owner2", r.Owner)
		assert.True(t, r.Date >= "2024-01-01" && r.Date <= "2024-01-10")
	}
}

func TestTextSearch(t *testing.T) {
	items := []record{
		{ID: 1, Name: "Alpha", Owner: "ops"},
		{ID: 2, Name: "beta", Owner: "DEV"},
		{ID: 3, Name: "", Owner: ""},
	}
	fields := func(r record) []string { return []string{r.Name, r.Owner} }

	t.Run("empty term is no filter", func(t *testing.T) {
		assert.Nil(t, Text("", fields))
		assert.Nil(t, Text("   ", fields))
		assert.Len(t, Filter(items, Text("", fields)), 3)
	})

	t.Run("case insensitive substring", func(t *testing.T) {
		got := Filter(items, Text("ALP", fields))
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].ID)

		got = Filter(items, Text("dev", fields))
		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].ID)
	})

	t.Run("not prefix only", func(t *testing.T) {
		got := Filter(items, Text("eta", fields))
		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].ID)
	})

	t.Run("empty fields never match", func(t *testing.T) {
		got := Filter(items, Text("x", fields))
		assert.Empty(t, got)
	})
}

func TestDateRange(t *testing.T) {
	items := []record{
		{ID: 1, Date: "2024-01-01"},
		{ID: 2, Date: "2024-01-15"},
		{ID: 3, Date: "2024-02-01"},
		{ID: 4},
	}
	date := func(r record) model.Date { return r.Date }

	assert.Nil(t, DateRange[record]("", "", date))

	got := Filter(items, DateRange[record]("2024-01-15", "", date))
	assert.Equal(t, []int{2, 3}, ids(got))

	got = Filter(items, DateRange[record]("", "2024-01-15", date))
	assert.Equal(t, []int{1, 2}, ids(got))

	got = Filter(items, DateRange[record]("2024-01-01", "2024-02-01", date))
	assert.Equal(t, []int{1, 2, 3}, ids(got))
}

func TestEqual(t *testing.T) {
	items := records(6)
	id := 4
	got := Filter(items, Equal(&id, func(r record) int { return r.ID }))
	assert.Equal(t, []int{4}, ids(got))

	assert.Nil(t, Equal[record, int](nil, func(r record) int { return r.ID }))
	assert.Nil(t, EqualString("", func(r record) string { return r.Name }))
}

func TestSorters(t *testing.T) {
	sorters := Sorters[record]{
		"date": By(func(r record) model.Date { return r.Date }),
	}
	items := []record{
		{ID: 1, Date: "2024-03-01"},
		{ID: 2, Date: "2024-01-01"},
		{ID: 3, Date: "2024-03-01"},
	}

	asc := append([]record(nil), items...)
	require.NoError(t, sorters.Sort(asc, "date", Asc))
	assert.Equal(t, []int{2, 1, 3}, ids(asc))

	desc := append([]record(nil), items...)
	require.NoError(t, sorters.Sort(desc, "date", Desc))
	assert.Equal(t, []int{1, 3, 2}, ids(desc), "stable for equal keys")

	natural := append([]record(nil), items...)
	require.NoError(t, sorters.Sort(natural, "", ""))
	assert.Equal(t, []int{1, 2, 3}, ids(natural))

	assert.Error(t, sorters.Sort(natural, "owner", Asc))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Paginate(items, 1, 2))
	assert.Equal(t, []int{5}, Paginate(items, 3, 2))
	assert.Equal(t, []int{}, Paginate(items, 4, 2))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, Paginate(items, 0, 0))
	assert.Equal(t, []int{}, Paginate([]int{}, 1, 10))
	assert.Equal(t, []int{}, Paginate(items, math.MaxInt, 2))
	assert.Equal(t, []int{}, Paginate(items, math.MaxInt/2+1, 3))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, Paginate(items, 1, math.MaxInt))
	assert.Equal(t, []int{}, Paginate(items, 2, math.MaxInt))
}

func TestRunHugePage(t *testing.T) {
	for _, size := range []int{0, 1, 10, MaxPageSize, math.MaxInt} {
		t.Run(fmt.Sprintf("pageSize %d", size), func(t *testing.T) {
			p, err := Params{Page: math.MaxInt, PageSize: size}.Normalize(DefaultPageSize, MaxPageSize)
			require.NoError(t, err)
			assert.Equal(t, math.MaxInt, p.Page)

			page, err := Run(records(25), p, Sorters[record]{})
			require.NoError(t, err)
			assert.Empty(t, page.List)
			assert.NotNil(t, page.List)
			assert.Equal(t, 25, page.Total)
		})
	}
}

func ids(rs []record) []int {
	out := make([]int, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
