package extensions

import (
	"fmt"
	"math"
	"time"
)

type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// FilterMultiple return all elements that satisfy the predicate
func FilterMultiple[T any](elements []T, predicate func(T) bool) (results []T) {
	for _, element := range elements {
		if predicate(element) {
			results = append(results, element)
		}
	}
	return
}

// AreAllEqual checks if a slice is complised of the same element by value
func AreAllEqual[T comparable](values []T) bool {
	for i := 1; i < len(values); i++ {
		if values[i] != values[0] {
			return false
		}
	}
	return true
}

// FmtShort formats a time in a date only string
func FmtShort(t time.Time) string {
	return t.Format(time.DateOnly)
}

// Last returns the final element, false when the slice is empty
func Last[T any](values []T) (T, bool) {
	if len(values) == 0 {
		var zero T
		return zero, false
	}
	return values[len(values)-1], true
}

// Subtract returns a[i] - b[i] for equal length slices
func Subtract[T Number](a, b []T) ([]T, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("error in subtract, lengths of vectors are not equal (%d vs %d)", len(a), len(b))
	}

	res := make([]T, len(a))
	for i, v := range a {
		res[i] = v - b[i]
	}

	return res, nil
}

func Min[T Number](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// ApproxEqual compares two floats within an absolute tolerance
func ApproxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// IsFinite is false for NaN and both infinities
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// AllFinite reports whether every value is a real number
func AllFinite(values []float64) bool {
	for _, v := range values {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}
