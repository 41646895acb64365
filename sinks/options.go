package sinks

import "go.uber.org/zap"

// FOption configures an FDWriter at construction, mirroring the teacher's
// functional-options shape (WOption func(*writerOptions) error).
type FOption func(*fdOptions)

type fdOptions struct {
	logger *zap.Logger
}

func (o *fdOptions) setDefault() {
	*o = fdOptions{logger: zap.NewNop()}
}

// WithFDLogger attaches l to an FDWriter; each underlying write(2) and fsync
// call is logged at Debug level.
func WithFDLogger(l *zap.Logger) FOption {
	return func(o *fdOptions) { o.logger = l }
}
