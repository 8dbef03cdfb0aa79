package pointer

// Ref returns a pointer to a copy of t.
//
// It is for optional fields, like `Schedule{Frequency: pointer.Ref(5)}`.
func Ref[T any](t T) *T {
	return &t
}

