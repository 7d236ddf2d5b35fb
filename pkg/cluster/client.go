// Package cluster wraps the cluster CLI binary (a kubectl-compatible tool)
// with structured invocations: it is the only component in the deploy
// orchestrator that talks to the outside world for cluster operations.
package cluster

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/golang/glog"
)

// Result is the outcome of one CLI invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the invocation exited zero.
func (r Result) Success() bool { return r.ExitCode == 0 }

// RunOptions toggles the per-call namespace/context flags and failure
// logging described in spec §4.1.
type RunOptions struct {
	// UseNamespace prepends the namespace flag unless false. Needed to
	// suppress it for calls like "config get-contexts" and "get namespace".
	UseNamespace bool
	// UseContext prepends the context flag unless false.
	UseContext bool
	// LogFailure controls whether a non-zero exit is echoed to the logger.
	LogFailure bool
}

// DefaultOptions is the common case: namespace and context flags included,
// failures logged.
func DefaultOptions() RunOptions {
	return RunOptions{UseNamespace: true, UseContext: true, LogFailure: true}
}

// Client is the injectable interface every Resource, Deployer, and
// TemplateDiscovery call goes through. Tests substitute a fake.
type Client interface {
	Run(ctx context.Context, opts RunOptions, args ...string) (Result, error)
}

// CLIClient shells out to a kubectl-compatible binary.
type CLIClient struct {
	// BinaryPath is the path to the cluster CLI executable, e.g. "kubectl".
	BinaryPath string
	Namespace  string
	Context    string
}

// New constructs a CLIClient bound to a single (namespace, context) pair.
func New(binaryPath, namespace, context string) *CLIClient {
	return &CLIClient{BinaryPath: binaryPath, Namespace: namespace, Context: context}
}

var _ Client = (*CLIClient)(nil)

// Run invokes the cluster CLI with args, prepending namespace/context flags
// per opts. It never retries; the exit status is surfaced as-is.
func (c *CLIClient) Run(ctx context.Context, opts RunOptions, args ...string) (Result, error) {
	full := make([]string, 0, len(args)+4)
	if opts.UseContext && c.Context != "" {
		full = append(full, "--context="+c.Context)
	}
	if opts.UseNamespace && c.Namespace != "" {
		full = append(full, "--namespace="+c.Namespace)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, c.BinaryPath, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		return result, err
	}

	if !result.Success() && opts.LogFailure {
		glog.Warningf("%s %v exited %d: %s", c.BinaryPath, full, result.ExitCode, result.Stderr)
	} else {
		glog.V(6).Infof("%s %v exited %d", c.BinaryPath, full, result.ExitCode)
	}
	return result, nil
}
