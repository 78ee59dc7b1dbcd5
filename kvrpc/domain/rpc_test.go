package domain

import (
	"errors"
	"testing"
)

func TestArity(t *testing.T) {
	tests := []struct {
		method string
		want   int
		ok     bool
	}{
		{MethodGet, 1, true},
		{MethodSet, 2, true},
		{"del", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		n, ok := Arity(tt.method)
		if n != tt.want || ok != tt.ok {
			t.Fatalf("Arity(%q) = (%d, %v), want (%d, %v)", tt.method, n, ok, tt.want, tt.ok)
		}
	}
}

func TestParamsError(t *testing.T) {
	err := error(&ParamsError{Method: MethodSet, Want: 2, Got: 1})
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ParamsError to match ErrInvalidParams")
	}
	if got := err.Error(); got != "Two parameters are required for set function" {
		t.Fatalf("unexpected message %q", got)
	}

	err = &ParamsError{Method: MethodGet, Want: 1, Got: 0}
	if got := err.Error(); got != "One parameter is required for get function" {
		t.Fatalf("unexpected message %q", got)
	}
	if !IsClientError(err) {
		t.Fatalf("expected client error")
	}
}
