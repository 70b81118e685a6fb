package util

// Ptr returns a pointer to a copy of v. Handy for optional JSON fields.
func Ptr[T any](v T) *T {
	return &v
}
