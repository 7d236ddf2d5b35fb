package status

import (
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// MultiError aggregates zero or more status Errors raised during a single
// phase (predeploy kind, main deploy, watch). It formats like the
// underlying multierr.Combine output, but exposes the typed Errors so
// callers can walk DebugInfo/Code per failure.
type MultiError interface {
	error
	Errors() []Error
	Summary() string
}

type multiError struct {
	errs []Error
}

// Append adds err (and any additional errs) to m, returning the resulting
// MultiError. Passing a nil err is a no-op; m may be nil.
func Append(m MultiError, err error, errs ...error) MultiError {
	result := &multiError{}
	if m != nil {
		result.errs = append(result.errs, m.Errors()...)
	}
	result.add(err)
	for _, e := range errs {
		result.add(e)
	}
	if len(result.errs) == 0 {
		return nil
	}
	return result
}

func (m *multiError) add(err error) {
	switch e := err.(type) {
	case nil:
	case Error:
		m.errs = append(m.errs, e)
	case MultiError:
		m.errs = append(m.errs, e.Errors()...)
	default:
		m.errs = append(m.errs, New(ResourceFailed, "%v", e))
	}
}

func (m *multiError) Errors() []Error {
	if m == nil {
		return nil
	}
	return m.errs
}

func (m *multiError) Error() string {
	combined := error(nil)
	for _, e := range m.errs {
		combined = multierr.Append(combined, e)
	}
	if combined == nil {
		return ""
	}
	return combined.Error()
}

// Summary renders one entry per contained error (its Error() line followed
// by its indented debug info, if any), sorted for determinism, and is what
// the orchestrator prints as its final failure report.
func (m *multiError) Summary() string {
	msgs := make([]string, 0, len(m.errs))
	for _, e := range m.errs {
		line := e.Error()
		if d := e.DebugInfo(); d != "" {
			line += "\n" + indent(d)
		}
		msgs = append(msgs, line)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "\n\n")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
