package utils

// Map applies mapper to each element of sli, keeping the order.
//
// nil is mapped to an empty slice, so that it is encoded as `[]` in json.
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for i := range sli {
		ret[i] = mapper(sli[i])
	}
	return ret
}
