// package common contains small math and slice helpers shared by the decoder packages.
package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// ValueOr dereferences p, falling back to def when p is nil.
// glTF leaves most optional scalars absent rather than zero, so the JSON schema
// keeps them as pointers and the extractors resolve defaults through this helper.
//
// Parameters:
//   - p: the optional value
//   - def: the value returned when p is nil
//
// Returns:
//   - T: *p or def
func ValueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// AlignUp rounds n up to the next multiple of align. align must be a power of two.
//
// Parameters:
//   - n: the value to round
//   - align: the alignment (power of two)
//
// Returns:
//   - int: the aligned value
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
