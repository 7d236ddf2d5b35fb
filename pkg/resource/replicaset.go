package resource

import (
	"context"
	"fmt"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
)

// rolloutState mirrors the "start at zero, merge in status fields" pattern
// spec §4.3 describes for both Deployment and ReplicaSet.
type rolloutState struct {
	replicas          int32
	updatedReplicas   int32
	availableReplicas int32
	readyReplicas     int32
	unavailableReplicas int32
}

// ReplicaSet can run standalone (discovered as a top-level manifest, fetches
// its own JSON) or as a Deployment's child (fed JSON by the parent).
type ReplicaSet struct {
	Base

	standalone bool
	uid        string
	state      rolloutState
	pods       []*Pod
	podTemplateContainers []string
}

func NewReplicaSet(b Base, standalone bool) *ReplicaSet {
	b.TimeoutD = 5 * time.Minute
	b.Method = MethodApply
	return &ReplicaSet{Base: b, standalone: standalone}
}

// Sync fetches the RS's own JSON when standalone; child instances are fed
// JSON via ingestJSON by their parent Deployment and Sync is a no-op.
func (r *ReplicaSet) Sync(ctx context.Context) error {
	if !r.standalone {
		return nil
	}
	result, err := r.Client.Run(ctx, defaultOpts(), "get", "replicaset", r.ResourceName, "--output=json")
	if err != nil {
		return err
	}
	if !result.Success() {
		r.FoundState = FoundAbsent
		r.state = rolloutState{}
		r.pods = nil
		r.StatusText = "not found"
		return nil
	}
	rs, err := decodeReplicaSet([]byte(result.Stdout))
	if err != nil {
		return err
	}
	return r.ingestJSON(ctx, rs)
}

// ingestJSON implements spec §4.3 ReplicaSet steps 1-3: list pods filtered
// by the RS's selector (including non-running), keep only pods owned by
// this RS's UID, and construct a child Pod Resource per kept pod.
func (r *ReplicaSet) ingestJSON(ctx context.Context, rs *appsv1.ReplicaSet) error {
	r.FoundState = FoundPresent
	r.uid = string(rs.UID)

	r.state = rolloutState{
		replicas:          rs.Status.Replicas,
		availableReplicas: rs.Status.AvailableReplicas,
		readyReplicas:     rs.Status.ReadyReplicas,
	}

	r.podTemplateContainers = nil
	for _, c := range rs.Spec.Template.Spec.Containers {
		r.podTemplateContainers = append(r.podTemplateContainers, c.Name)
	}

	result, err := r.Client.Run(ctx, defaultOpts(), "get", "pods", "-a", "--output=json", selectorArg(rs.Spec.Selector.MatchLabels))
	if err != nil {
		return err
	}
	r.pods = nil
	if !result.Success() {
		r.StatusText = fmt.Sprintf("%d replicas, %d available, %d ready", r.state.replicas, r.state.availableReplicas, r.state.readyReplicas)
		return nil
	}
	list, err := decodePodList([]byte(result.Stdout))
	if err != nil {
		return err
	}
	for i := range list.Items {
		p := list.Items[i]
		if !hasOwner(p.OwnerReferences, r.uid) {
			continue
		}
		child := NewPod(Base{
			KindTag:       "Pod",
			ResourceName:  p.Name,
			NamespaceName: r.NamespaceName,
			ContextName:   r.ContextName,
			ParentDisplay: r.ID(),
			Client:        r.Client,
		})
		child.StartedAt = r.StartedAt
		if err := child.ingestJSON(&p); err != nil {
			return err
		}
		r.pods = append(r.pods, child)
	}

	r.StatusText = fmt.Sprintf("%d replicas, %d available, %d ready", r.state.replicas, r.state.availableReplicas, r.state.readyReplicas)
	return nil
}

func (r *ReplicaSet) Exists() bool {
	if !r.standalone {
		return true
	}
	return r.FoundState == FoundPresent
}

// DeploySucceeded holds when replicas == availableReplicas == readyReplicas.
func (r *ReplicaSet) DeploySucceeded() bool {
	s := r.state
	return s.replicas == s.availableReplicas && s.availableReplicas == s.readyReplicas
}

// DeployFailed holds when the pod list is non-empty and every pod failed.
func (r *ReplicaSet) DeployFailed() bool {
	if len(r.pods) == 0 {
		return false
	}
	for _, p := range r.pods {
		if !p.DeployFailed() {
			return false
		}
	}
	return true
}

func (r *ReplicaSet) DeployTimedOut() bool {
	if r.Base.DeployTimedOut() {
		return true
	}
	if len(r.pods) == 0 {
		return false
	}
	for _, p := range r.pods {
		if !p.DeployTimedOut() {
			return false
		}
	}
	return true
}

func (r *ReplicaSet) DeployFinished() bool {
	return r.DeployFailed() || r.DeploySucceeded() || r.DeployTimedOut()
}

func (r *ReplicaSet) FetchEvents(ctx context.Context) ([]string, error) {
	return fetchEventsFor(ctx, r.Client, r.ID(), r.StartedAt)
}

// FetchLogs collects logs for every container in the pod template, one CLI
// invocation per (pod, container), keyed by "<id>/<container>".
func (r *ReplicaSet) FetchLogs(ctx context.Context) (map[string]string, error) {
	if r.StartedAt == nil {
		return nil, nil
	}
	out := map[string]string{}
	since := r.StartedAt.UTC().Format(time.RFC3339)
	for _, p := range r.pods {
		for _, c := range r.podTemplateContainers {
			result, err := p.Client.Run(ctx, defaultOpts(), "logs", p.ResourceName, "--container="+c, "--since-time="+since, "--tail=250")
			if err != nil {
				continue
			}
			if result.Success() {
				out[p.ID()+"/"+c] = result.Stdout
			}
		}
	}
	return out, nil
}

func (r *ReplicaSet) DebugMessage(ctx context.Context) string { return debugMessage(ctx, r) }

// Pods exposes the transient child pods tracked by the last ingested JSON.
func (r *ReplicaSet) Pods() []*Pod { return r.pods }

// State exposes the rollout counters (replicas, available, ready) from the
// last ingested JSON.
func (r *ReplicaSet) State() (replicas, available, ready int32) {
	return r.state.replicas, r.state.availableReplicas, r.state.readyReplicas
}

func prettyJoin(parts ...string) string { return strings.Join(parts, ", ") }
