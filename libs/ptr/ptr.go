package ptr

// To returns a pointer to a copy of v
func To[T any](v T) *T {
	return &v
}

// FromOr returns the value p points at, or or when p is nil
func FromOr[T any](p *T, or T) T {
	if p == nil {
		return or
	}
	return *p
}

// StringOr returns value of pointer or alternative value
func StringOr(s *string, or string) string {
	return FromOr(s, or)
}
