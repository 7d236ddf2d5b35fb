package resource

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
)

// revisionAnnotation is the standard annotation Deployment controllers set
// on both the Deployment and its owned ReplicaSets to track rollout history.
const revisionAnnotation = "deployment.kubernetes.io/revision"

// Deployment implements spec §4.3's Deployment kind: fetches its own JSON,
// finds the latest owned ReplicaSet by UID+revision match, and derives
// success/failure/timeout from the RS plus its own replica counters.
type Deployment struct {
	Base

	state           rolloutState
	desiredReplicas int32
	latestRS        *ReplicaSet
}

func NewDeployment(b Base) *Deployment {
	b.TimeoutD = 5 * time.Minute
	b.Method = MethodApply
	return &Deployment{Base: b}
}

func (d *Deployment) Sync(ctx context.Context) error {
	result, err := d.Client.Run(ctx, defaultOpts(), "get", "deployment", d.ResourceName, "--output=json")
	if err != nil {
		return err
	}
	if !result.Success() {
		d.FoundState = FoundAbsent
		d.state = rolloutState{}
		d.latestRS = nil
		d.StatusText = "not found"
		return nil
	}
	dep, err := decodeDeployment([]byte(result.Stdout))
	if err != nil {
		return err
	}
	d.FoundState = FoundPresent

	// spec.replicas defaults to 1 when unset, same as the API server.
	d.desiredReplicas = 1
	if dep.Spec.Replicas != nil {
		d.desiredReplicas = *dep.Spec.Replicas
	}

	d.state = rolloutState{
		replicas:            dep.Status.Replicas,
		updatedReplicas:     dep.Status.UpdatedReplicas,
		availableReplicas:   dep.Status.AvailableReplicas,
		unavailableReplicas: dep.Status.UnavailableReplicas,
	}

	rs, err := d.findLatestReplicaSet(ctx, dep)
	if err != nil {
		return err
	}
	d.latestRS = rs

	d.StatusText = prettyJoin(
		fmt.Sprintf("%d updated", d.state.updatedReplicas),
		fmt.Sprintf("%d replicas", d.state.replicas),
		fmt.Sprintf("%d available", d.state.availableReplicas),
		fmt.Sprintf("%d unavailable", d.state.unavailableReplicas),
	)
	return nil
}

// findLatestReplicaSet implements spec §4.3 step 2: list ReplicaSets
// filtered by the deployment's selector, keep those owned by the
// deployment's UID whose revision annotation matches the deployment's; the
// first match wins. The winning RS is fed the deployment's started-at and
// ingests its own JSON blob directly (no extra fetch), per step 3.
func (d *Deployment) findLatestReplicaSet(ctx context.Context, dep *appsv1.Deployment) (*ReplicaSet, error) {
	var matchLabels map[string]string
	if dep.Spec.Selector != nil {
		matchLabels = dep.Spec.Selector.MatchLabels
	}
	result, err := d.Client.Run(ctx, defaultOpts(), "get", "replicasets", "--output=json", selectorArg(matchLabels))
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return nil, nil
	}
	list, err := decodeReplicaSetList([]byte(result.Stdout))
	if err != nil {
		return nil, err
	}

	wantRevision := dep.Annotations[revisionAnnotation]
	uid := string(dep.UID)

	for i := range list.Items {
		rs := list.Items[i]
		if !hasOwner(rs.OwnerReferences, uid) {
			continue
		}
		if rs.Annotations[revisionAnnotation] != wantRevision {
			continue
		}
		child := NewReplicaSet(Base{
			KindTag:       "ReplicaSet",
			ResourceName:  rs.Name,
			NamespaceName: d.NamespaceName,
			ContextName:   d.ContextName,
			ParentDisplay: d.ID(),
			Client:        d.Client,
		}, false)
		child.StartedAt = d.StartedAt
		if err := child.ingestJSON(ctx, &rs); err != nil {
			return nil, err
		}
		return child, nil
	}
	return nil, nil
}

func (d *Deployment) Exists() bool { return d.FoundState == FoundPresent }

// DeploySucceeded implements the "Deployment success law" (spec §8): the
// latest RS must exist and have succeeded, and updated == replicas ==
// available.
func (d *Deployment) DeploySucceeded() bool {
	if d.latestRS == nil || !d.latestRS.DeploySucceeded() {
		return false
	}
	s := d.state
	return s.updatedReplicas == s.replicas && s.replicas == s.availableReplicas
}

// DeployFailed is deliberately narrow (spec §9 Open Question): it only
// reports failure when the latest RS itself reports failure, which
// requires the RS to have produced at least one pod. A Deployment stuck
// before creating any pod (e.g. quota denial) will not be caught here.
func (d *Deployment) DeployFailed() bool {
	return d.latestRS != nil && d.latestRS.DeployFailed()
}

func (d *Deployment) DeployTimedOut() bool {
	if d.Base.DeployTimedOut() {
		return true
	}
	return d.latestRS != nil && d.latestRS.DeployTimedOut()
}

func (d *Deployment) DeployFinished() bool {
	return d.DeployFailed() || d.DeploySucceeded() || d.DeployTimedOut()
}

func (d *Deployment) FetchEvents(ctx context.Context) ([]string, error) {
	return fetchEventsFor(ctx, d.Client, d.ID(), d.StartedAt)
}

func (d *Deployment) FetchLogs(ctx context.Context) (map[string]string, error) {
	if d.latestRS == nil {
		return nil, nil
	}
	return d.latestRS.FetchLogs(ctx)
}

func (d *Deployment) DebugMessage(ctx context.Context) string { return debugMessage(ctx, d) }

// LatestReplicaSet exposes the transient child ReplicaSet found by the last
// Sync, or nil when none matched.
func (d *Deployment) LatestReplicaSet() *ReplicaSet { return d.latestRS }

// Replicas returns the desired (spec.replicas) count, used by Service's
// endpoint-count comparison (spec §4.3/§8: "endpoint_count ==
// that_deployment.spec.replicas"). The Deployment's own success law
// compares status counters against each other and doesn't use this.
func (d *Deployment) Replicas() int32 { return d.desiredReplicas }
