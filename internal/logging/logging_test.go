package logging

import "testing"

func TestClampLevel(t *testing.T) {
	cases := []struct {
		name        string
		base        int
		adjustments []int
		want        int
	}{
		{"no adjustment", 30, nil, 30},
		{"one verbose step", 30, []int{-10}, 20},
		{"clamped at minimum", 30, []int{-10, -10, -10, -10}, MinLevel},
		{"clamped at maximum", 30, []int{10, 10, 10}, MaxLevel},
		{"quiet and verbose cancel out", 30, []int{10, -10}, 30},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ClampLevel(c.base, c.adjustments...)
			if got != c.want {
				t.Errorf("ClampLevel(%d, %v) = %d, want %d", c.base, c.adjustments, got, c.want)
			}
		})
	}
}
