package testutil

import (
	"slices"
	"testing"
)

// AssertQueryPaths runs a query and checks the result paths in order.
func (l *TestLibrary) AssertQueryPaths(query string, expected ...string) {
	l.t.Helper()
	result := l.RunCLI("query", query)
	result.MustSucceed(l.t)
	if got := result.Paths(); !slices.Equal(got, expected) {
		l.t.Errorf("query %q: expected %v, got %v\nRaw: %s", query, expected, got, result.RawJSON)
	}
}

// AssertQueryCount runs a query and checks the number of results.
func (l *TestLibrary) AssertQueryCount(query string, expectedCount int) {
	l.t.Helper()
	result := l.RunCLI("query", query)
	result.MustSucceed(l.t)
	if n := len(result.DataList("items")); n != expectedCount {
		l.t.Errorf("query %q: expected %d results, got %d\nRaw: %s", query, expectedCount, n, result.RawJSON)
	}
}

// AssertHasWarning checks that the result contains a warning with the given code.
func (r *CLIResult) AssertHasWarning(t *testing.T, code string) {
	t.Helper()
	for _, w := range r.Warnings {
		if w.Code == code {
			return
		}
	}
	t.Errorf("expected warning with code %s, got warnings: %+v", code, r.Warnings)
}

// AssertNoWarnings checks that the result has no warnings.
func (r *CLIResult) AssertNoWarnings(t *testing.T) {
	t.Helper()
	if len(r.Warnings) > 0 {
		t.Errorf("expected no warnings, got: %+v", r.Warnings)
	}
}

// AssertResultCount checks that a data list has the expected length.
func (r *CLIResult) AssertResultCount(t *testing.T, key string, expected int) {
	t.Helper()
	results := r.DataList(key)
	if len(results) != expected {
		t.Errorf("expected %d %s, got %d\nRaw: %s", expected, key, len(results), r.RawJSON)
	}
}
