package router

import "testing"

func TestHasAll_RequiresEveryCapability(t *testing.T) {
	cases := []struct {
		name string
		have []string
		want []string
		ok   bool
	}{
		{"exact match", []string{"x", "y"}, []string{"x", "y"}, true},
		{"superset", []string{"x", "y", "z"}, []string{"x", "y"}, true},
		{"missing one", []string{"x"}, []string{"x", "y"}, false},
		{"no overlap", []string{"z"}, []string{"x", "y"}, false},
		{"empty want matches anything", []string{"x"}, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := hasAll(tc.have, tc.want); got != tc.ok {
				t.Errorf("hasAll(%v, %v) = %v, want %v", tc.have, tc.want, got, tc.ok)
			}
		})
	}
}
