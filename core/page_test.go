package core

import (
	"reflect"
	"testing"
)

func TestPaginate_ConcatenationReproducesList(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	for _, size := range []int{1, 5, 10, 23, 50} {
		var all []int
		pages := PageCount(len(items), size)
		for p := 1; p <= pages; p++ {
			all = append(all, Paginate(items, p, size)...)
		}
		if !reflect.DeepEqual(all, items) {
			t.Errorf("page size %d: concatenation = %v", size, all)
		}
	}
}

func TestPaginate_OutOfRange(t *testing.T) {
	items := []string{"a", "b", "c"}

	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"beyond last page", 3, 2},
		{"page zero", 0, 2},
		{"negative page", -1, 2},
		{"zero page size", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(items, tt.page, tt.pageSize)
			if got == nil || len(got) != 0 {
				t.Errorf("Paginate() = %v, want empty slice", got)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	cases := []struct{ total, size, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := PageCount(c.total, c.size); got != c.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", c.total, c.size, got, c.want)
		}
	}
}
