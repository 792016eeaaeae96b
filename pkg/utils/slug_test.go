package utils

import "testing"

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Onion Epidermis at 400x", "onion-epidermis-at-400x"},
		{"Paramecium Négatif", "paramecium-negatif"},
		{"  Pond Water -- Week 3!  ", "pond-water-week-3"},
		{"Cheek Cells (Stained)", "cheek-cells-stained"},
		{"études de cellules", "etudes-de-cellules"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := GenerateSlug(tt.input); got != tt.want {
			t.Errorf("GenerateSlug(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}
