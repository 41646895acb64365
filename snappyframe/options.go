package snappyframe

import "go.uber.org/zap"

// WOption configures a Writer at construction, following the same
// functional-options shape the teacher uses for its zstd writer (WOption
// func(*writerOptions) error, defaulted via setDefault).
type WOption func(*writerOptions)

type writerOptions struct {
	logger *zap.Logger
}

func (o *writerOptions) setDefault() {
	*o = writerOptions{logger: zap.NewNop()}
}

// WithLogger attaches l to the Writer; block emissions are logged at Debug
// level, the same granularity the teacher logs per-frame appends.
func WithLogger(l *zap.Logger) WOption {
	return func(o *writerOptions) { o.logger = l }
}
