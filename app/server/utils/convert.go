package utils

func P[T any](v T) *T {
	return &v
}

// V 取指针的值，为 nil 时返回 fallback
func V[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
