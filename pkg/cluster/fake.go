package cluster

import (
	"context"
	"strings"
	"sync"
)

// FakeClient is a scripted Client used by tests across the module: callers
// register a Result (or error) per argv prefix, and every Run call is
// recorded for assertions on invocation order (spec §8 scenario 6).
type FakeClient struct {
	mu    sync.Mutex
	calls []Call

	// responses maps a space-joined argv prefix to the Result/error to
	// return. Longest matching prefix wins.
	responses map[string]response
	// Default is returned when no prefix matches.
	Default Result
}

// Call records one Run invocation for later assertions.
type Call struct {
	Args []string
	Opts RunOptions
}

type response struct {
	result Result
	err    error
}

// NewFakeClient returns an empty FakeClient; register responses with When.
func NewFakeClient() *FakeClient {
	return &FakeClient{responses: map[string]response{}}
}

// When registers the Result returned when the invocation's args start with
// prefix (space-joined).
func (f *FakeClient) When(prefix string, result Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = response{result: result}
}

// WhenErr registers a hard error (not a non-zero exit) for a prefix.
func (f *FakeClient) WhenErr(prefix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = response{err: err}
}

// Calls returns the recorded invocations in order.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Run implements Client.
func (f *FakeClient) Run(_ context.Context, opts RunOptions, args ...string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Args: append([]string{}, args...), Opts: opts})

	joined := strings.Join(args, " ")
	var best string
	matched := false
	for prefix := range f.responses {
		if strings.HasPrefix(joined, prefix) && len(prefix) >= len(best) {
			best = prefix
			matched = true
		}
	}
	if matched {
		r := f.responses[best]
		return r.result, r.err
	}
	return f.Default, nil
}
