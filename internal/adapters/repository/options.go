package repository

// Option applies a configuration option to the ViewStore.
type Option func(*ViewStore)

// WithMaxLimit caps the n accepted by TopN.
func WithMaxLimit(n int) Option {
	return func(s *ViewStore) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}
