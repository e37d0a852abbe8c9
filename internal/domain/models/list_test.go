package models

import "testing"

func TestList_NextItemOrder(t *testing.T) {
	tests := []struct {
		name   string
		orders []int
		want   int
	}{
		{"empty list", nil, 1},
		{"single item", []int{1}, 2},
		{"sequential", []int{1, 2, 3}, 4},
		{"gap after removal", []int{1, 4}, 5},
		{"unsorted", []int{3, 1, 2}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &List{}
			for _, o := range tt.orders {
				l.Items = append(l.Items, Item{Order: o})
			}
			if got := l.NextItemOrder(); got != tt.want {
				t.Errorf("NextItemOrder() = %d, want %d", got, tt.want)
			}
		})
	}
}
