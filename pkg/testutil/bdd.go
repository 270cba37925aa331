package testutil

import "testing"

// Given opens a scenario. Subtests nest so `go test -run` can target a
// single Given/When/Then path by name.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("Given "+desc, fn)
}

// When describes the action under test inside a Given.
func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("When "+desc, fn)
}

// Then holds the assertions for the enclosing When.
func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("Then "+desc, fn)
}
