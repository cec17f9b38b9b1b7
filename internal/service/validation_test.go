package service_test

import (
	"testing"

	"github.com/maxviazov/lp-feed/internal/service"
)

func TestIsValidOrder(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"Ascending", "asc", true},
		{"Descending", "desc", true},
		{"Latest alias", "latest", true},
		{"Oldest alias upper case", "OLDEST", true},
		{"Padded", " desc ", true},
		{"Unknown", "popular", false},
		{"Empty string", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := service.IsValidOrder(tc.input)
			if got != tc.want {
				t.Errorf("IsValidOrder(%q) = %v; want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestIsValidPageSize(t *testing.T) {
	cases := []struct {
		input int
		want  bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{10, true},
		{100, true},
		{101, false},
	}

	for _, tc := range cases {
		if got := service.IsValidPageSize(tc.input); got != tc.want {
			t.Errorf("IsValidPageSize(%d) = %v; want %v", tc.input, got, tc.want)
		}
	}
}

func TestInvalidField(t *testing.T) {
	err := service.InvalidField("search", "too long")
	fields := service.FieldErrors(err)
	if len(fields) != 1 || fields[0].Field != "search" {
		t.Fatalf("unexpected field errors: %+v", fields)
	}
	if got := err.Error(); got != "invalid input: search too long" {
		t.Fatalf("unexpected message %q", got)
	}
	if service.FieldErrors(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
