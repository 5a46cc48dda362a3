package main

import (
	"testing"

	"lumina/internal/domain"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Plan
		wantErr bool
	}{
		{in: "pro", want: domain.PlanPro},
		{in: " Free ", want: domain.PlanFree},
		{in: "", wantErr: true},
		{in: "supporter", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parsePlan(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parsePlan(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parsePlan(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
