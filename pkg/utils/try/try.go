// Package try unpacks (value, error) pairs where an error can only be fatal,
// like in test setups and command entrypoints.
//
//	conf := try.To(kcs.LoadServerConfig(path)).OrFatal(t)
package try

// something having method `Fatal`, like *testing.T or *log.Logger
type Fataler interface {
	Fatal(...any)
}

// Wrapper of a pair of (T, error).
type Either[T any] interface {
	// Get returns the pair as is.
	Get() (T, error)

	// OrFatal returns the value, or calls ftl.Fatal(err) when there is an error.
	//
	// When ftl has a `Helper()` method (like *testing.T), it is called before Fatal.
	OrFatal(ftl Fataler) T

	// OrDefault returns the value, or d when there is an error.
	OrDefault(d T) T
}

func To[T any](value T, err error) Either[T] {
	return either[T]{value: value, err: err}
}

type either[T any] struct {
	value T
	err   error
}

func (e either[T]) Get() (T, error) {
	if e.err != nil {
		return *new(T), e.err
	}
	return e.value, nil
}

func (e either[T]) OrDefault(d T) T {
	if e.err != nil {
		return d
	}
	return e.value
}

func (e either[T]) OrFatal(ftl Fataler) T {
	if e.err == nil {
		return e.value
	}
	if hlp, ok := ftl.(interface{ Helper() }); ok {
		hlp.Helper()
	}
	ftl.Fatal(e.err)
	return *new(T)
}
