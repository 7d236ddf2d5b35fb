// Package resource implements the per-kind status interpretation described
// in spec §4.3: each Kubernetes kind gets its own sync/success/failure/
// timeout logic, dispatched through Factory (see factory.go).
package resource

import (
	"context"
	"fmt"
	"time"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
)

// Found is a tri-valued existence flag: a Resource has not yet been synced,
// was confirmed present, or was confirmed absent.
type Found int

const (
	FoundUnknown Found = iota
	FoundPresent
	FoundAbsent
)

// DeployMethod selects how the Deployer submits a resource.
type DeployMethod int

const (
	MethodApply DeployMethod = iota
	MethodReplace
	MethodReplaceForce
)

// Resource is the shared interface every kind implementation satisfies. It
// mirrors spec §4.3's interface list.
type Resource interface {
	Kind() string
	Name() string
	Namespace() string
	Context() string
	ManifestPath() string
	Parent() string

	Sync(ctx context.Context) error

	SetDeployStartedAt(t time.Time)
	DeployStartedAt() *time.Time

	DeploySucceeded() bool
	DeployFailed() bool
	DeployTimedOut() bool
	DeployFinished() bool

	Exists() bool
	FetchEvents(ctx context.Context) ([]string, error)
	FetchLogs(ctx context.Context) (map[string]string, error)
	DebugMessage(ctx context.Context) string
	PrettyStatus() string

	Timeout() time.Duration
	DeployMethod() DeployMethod
}

// Base holds the fields and predicate plumbing common to every kind
// (spec §3's Resource attributes minus kind-specific state), so each kind
// implementation only needs to embed Base and override Sync/predicates.
type Base struct {
	KindTag       string
	ResourceName  string
	NamespaceName string
	ContextName   string
	Manifest      string
	ParentDisplay string

	Client cluster.Client

	StartedAt *time.Time
	TimeoutD  time.Duration
	Method    DeployMethod

	FoundState Found
	StatusText string
}

func (b *Base) Kind() string         { return b.KindTag }
func (b *Base) Name() string         { return b.ResourceName }
func (b *Base) Namespace() string    { return b.NamespaceName }
func (b *Base) Context() string      { return b.ContextName }
func (b *Base) ManifestPath() string { return b.Manifest }
func (b *Base) Parent() string       { return b.ParentDisplay }
func (b *Base) Timeout() time.Duration    { return b.TimeoutD }
func (b *Base) DeployMethod() DeployMethod { return b.Method }
func (b *Base) PrettyStatus() string       { return fmt.Sprintf("%s/%s: %s", b.KindTag, b.ResourceName, b.StatusText) }

func (b *Base) SetDeployStartedAt(t time.Time) { b.StartedAt = &t }
func (b *Base) DeployStartedAt() *time.Time    { return b.StartedAt }

// DeployTimedOut implements invariant 1: before deploy_started_at is set,
// this always returns false.
func (b *Base) DeployTimedOut() bool {
	if b.StartedAt == nil {
		return false
	}
	return time.Since(*b.StartedAt) > b.TimeoutD
}

// ID returns the "(kind, name)" identity used for uniqueness (invariant 5)
// and for keying event/log maps.
func (b *Base) ID() string { return b.KindTag + "/" + b.ResourceName }
