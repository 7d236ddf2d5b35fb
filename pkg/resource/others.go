package resource

import (
	"context"
	"time"

	"deploy.dev/kubernetes-deploy/pkg/kinds"
)

// ExistenceOnly backs Ingress, PersistentVolumeClaim, PodDisruptionBudget,
// PodTemplate, and the custom resource kinds (Cloudsql, Redis, Bugsnag):
// they default to existence-based success, same shape as ConfigMap, but
// some use "replace" instead of "apply" as their deploy method (spec §4.3
// "Others").
type ExistenceOnly struct {
	Base
}

// NewExistenceOnly builds the existence-only Resource for kind, selecting
// MethodReplace for the custom kinds kinds.IsCustomReplaceKind recognizes
// and MethodApply otherwise.
func NewExistenceOnly(b Base) *ExistenceOnly {
	b.TimeoutD = 5 * time.Minute
	if kinds.IsCustomReplaceKind(b.KindTag) {
		b.Method = MethodReplace
	} else {
		b.Method = MethodApply
	}
	return &ExistenceOnly{Base: b}
}

func (e *ExistenceOnly) Sync(ctx context.Context) error {
	result, err := e.Client.Run(ctx, defaultOpts(), "get", e.KindTag, e.ResourceName)
	if err != nil {
		return err
	}
	if result.Success() {
		e.FoundState = FoundPresent
		e.StatusText = "exists"
	} else {
		e.FoundState = FoundAbsent
		e.StatusText = "not found"
	}
	return nil
}

func (e *ExistenceOnly) Exists() bool          { return e.FoundState == FoundPresent }
func (e *ExistenceOnly) DeploySucceeded() bool { return e.Exists() }
func (e *ExistenceOnly) DeployFailed() bool    { return false }
func (e *ExistenceOnly) DeployFinished() bool {
	return e.DeployFailed() || e.DeploySucceeded() || e.DeployTimedOut()
}

func (e *ExistenceOnly) FetchEvents(ctx context.Context) ([]string, error) {
	return fetchEventsFor(ctx, e.Client, e.ID(), e.StartedAt)
}
func (e *ExistenceOnly) FetchLogs(context.Context) (map[string]string, error) { return nil, nil }
func (e *ExistenceOnly) DebugMessage(ctx context.Context) string              { return debugMessage(ctx, e) }
