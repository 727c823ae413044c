package engine

import (
	"reflect"
	"testing"
)

func TestParseSortSpec(t *testing.T) {
	tests := []struct {
		in   string
		want []SortField
	}{
		{"age", []SortField{{"age", 1}}},
		{"+age", []SortField{{"age", 1}}},
		{"-age", []SortField{{"age", -1}}},
		{"+age -ctime", []SortField{{"age", 1}, {"ctime", -1}}},
		{"  age   ctime ", []SortField{{"age", 1}, {"ctime", 1}}},
		{"", []SortField{}},
		{"-", []SortField{}},
	}
	for _, tt := range tests {
		got := ParseSortSpec(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseSortSpec(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
