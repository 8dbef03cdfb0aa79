// Package cmp has equality predicates used mainly in tests.
package cmp

type BiPredicator[V any, U any] func(a V, b U) bool

// a == b as BiPredicator
func EqEq[T comparable](a, b T) bool {
	return a == b
}

// *a == *b as BiPredicator. Two nils are equal.
func PEqEq[T comparable](a, b *T) bool {
	return PEqualWith(a, b, EqEq[T])
}

// pred(*a, *b). Two nils are equal.
func PEqualWith[T any](a, b *T, pred func(T, T) bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return pred(*a, *b)
}
