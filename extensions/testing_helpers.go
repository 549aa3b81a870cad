package extensions

import "testing"

func AssertAreEqual[T comparable](t *testing.T, name string, expected T, actual T) {
	t.Helper()
	if expected != actual {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, actual)
	}
}

func AssertNillability[T any](t *testing.T, name string, expected bool, actual *T) {
	t.Helper()
	if (actual == nil) != expected {
		t.Fatalf("nillability mismatch for %s, expected nil=%v, got nil=%v", name, expected, actual == nil)
	}
}

// AssertApproxEqual fails when |expected - actual| exceeds tolerance
func AssertApproxEqual(t *testing.T, name string, expected, actual, tolerance float64) {
	t.Helper()
	if !ApproxEqual(expected, actual, tolerance) {
		t.Fatalf("value mismatch for %s, expected %.12f, got %.12f (tolerance %.1e)", name, expected, actual, tolerance)
	}
}

// AssertSliceApproxEqual compares lengths then every element within tolerance
func AssertSliceApproxEqual(t *testing.T, name string, expected, actual []float64, tolerance float64) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Fatalf("length mismatch for %s, expected %d, got %d", name, len(expected), len(actual))
	}
	for i := range expected {
		if !ApproxEqual(expected[i], actual[i], tolerance) {
			t.Fatalf("value mismatch for %s[%d], expected %.12f, got %.12f", name, i, expected[i], actual[i])
		}
	}
}
