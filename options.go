package streamio

import "go.uber.org/zap"

// LOption configures a LimitingWriter at construction, mirroring the
// teacher's WOption/writerOptions functional-options shape.
type LOption func(*limitingOptions)

type limitingOptions struct {
	logger *zap.Logger
}

func (o *limitingOptions) setDefault() {
	*o = limitingOptions{logger: zap.NewNop()}
}

// WithLimitingLogger attaches l to a LimitingWriter; position-limit overruns
// are logged at Warn level, successful construction at Debug.
func WithLimitingLogger(l *zap.Logger) LOption {
	return func(o *limitingOptions) { o.logger = l }
}
