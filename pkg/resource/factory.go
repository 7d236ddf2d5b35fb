package resource

import (
	"deploy.dev/kubernetes-deploy/pkg/cluster"
	"deploy.dev/kubernetes-deploy/pkg/kinds"
)

// Factory dispatches a (kind, name) tuple to the matching kind-specific
// Resource implementation, or to Generic (spec §4.2). It is the only place
// kind discrimination happens (spec §9).
type Factory struct{}

// NewFactory returns a stateless Factory; ResourceFactory idempotence
// (spec §8) follows directly from ForType being a pure function of its
// arguments.
func NewFactory() *Factory { return &Factory{} }

// ForType builds the Resource for kind/name. manifestPath is empty for
// resources discovered transitively (a ReplicaSet found while syncing a
// Deployment, etc).
func (f *Factory) ForType(kind, name, namespace, context, manifestPath string, client cluster.Client) Resource {
	b := Base{
		KindTag:       kind,
		ResourceName:  name,
		NamespaceName: namespace,
		ContextName:   context,
		Manifest:      manifestPath,
		Client:        client,
		FoundState:    FoundUnknown,
	}

	switch kind {
	case kinds.ConfigMap:
		return NewConfigMap(b)
	case kinds.Service:
		return NewService(b)
	case kinds.Deployment:
		return NewDeployment(b)
	case kinds.ReplicaSet:
		return NewReplicaSet(b, true)
	case kinds.Pod:
		return NewPod(b)
	case kinds.Ingress, kinds.PersistentVolumeClaim, kinds.PodDisruptionBudget, kinds.PodTemplate,
		kinds.Cloudsql, kinds.Redis, kinds.Bugsnag:
		return NewExistenceOnly(b)
	default:
		return NewGeneric(b)
	}
}

var (
	_ Resource = (*Generic)(nil)
	_ Resource = (*ConfigMap)(nil)
	_ Resource = (*Service)(nil)
	_ Resource = (*Deployment)(nil)
	_ Resource = (*ReplicaSet)(nil)
	_ Resource = (*Pod)(nil)
	_ Resource = (*ExistenceOnly)(nil)
)
