package status

import "go.uber.org/multierr"

// CombineClose folds the errors from the several steps a Close
// implementation runs (sync buffered bytes, flush an inner writer, close an
// owned inner writer) into one *Status, the way the teacher's
// seekableWriterImpl.Close combines writeSeekTable and enc.Close with
// go.uber.org/multierr.Append. The returned Status keeps the Code of the
// first *Status among errs, if any, so a composed Close still reports a
// meaningful taxonomy code rather than always collapsing to Unknown.
func CombineClose(errs ...error) *Status {
	combined := multierr.Combine(errs...)
	if combined == nil {
		return nil
	}
	code := Unknown
	for _, e := range multierr.Errors(combined) {
		if s, ok := e.(*Status); ok {
			code = s.Code()
			break
		}
	}
	return Wrap(code, combined.Error(), combined)
}
