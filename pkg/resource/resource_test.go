package resource

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
)

// idempotenceView is the subset of Resource state ForType's idempotence law
// (spec §8) promises is identical across calls with the same arguments.
type idempotenceView struct {
	Kind     string
	Name     string
	Method   DeployMethod
	Timeout  time.Duration
}

func snapshot(r Resource) idempotenceView {
	return idempotenceView{Kind: r.Kind(), Name: r.Name(), Method: r.DeployMethod(), Timeout: r.Timeout()}
}

func TestDeployTimedOutFalseBeforeStarted(t *testing.T) {
	fake := cluster.NewFakeClient()
	f := NewFactory()
	r := f.ForType("ConfigMap", "app-config", "ns", "ctx", "cm.yml", fake)
	assert.False(t, r.DeployTimedOut())
}

func TestConfigMapHappyPath(t *testing.T) {
	fake := cluster.NewFakeClient()
	fake.When("get ConfigMap app-config", cluster.Result{ExitCode: 0})

	f := NewFactory()
	r := f.ForType("ConfigMap", "app-config", "ns", "ctx", "cm.yml", fake)
	require.NoError(t, r.Sync(context.Background()))
	assert.True(t, r.Exists())
	assert.True(t, r.DeploySucceeded())
	assert.False(t, r.DeployFailed())
	assert.True(t, r.DeployFinished())
}

func TestConfigMapNotFoundBeforeApply(t *testing.T) {
	fake := cluster.NewFakeClient()
	fake.When("get ConfigMap app-config", cluster.Result{ExitCode: 1})

	f := NewFactory()
	r := f.ForType("ConfigMap", "app-config", "ns", "ctx", "cm.yml", fake)
	require.NoError(t, r.Sync(context.Background()))
	assert.False(t, r.Exists())
}

func TestGenericResourceAlwaysSucceeds(t *testing.T) {
	fake := cluster.NewFakeClient()
	f := NewFactory()
	r := f.ForType("Frobnicator", "foo", "ns", "ctx", "", fake)
	assert.True(t, r.DeploySucceeded())
	assert.False(t, r.DeployFailed())
}

func TestFactoryIdempotence(t *testing.T) {
	fake := cluster.NewFakeClient()
	f := NewFactory()
	a := f.ForType("ConfigMap", "app-config", "ns", "ctx", "cm.yml", fake)
	b := f.ForType("ConfigMap", "app-config", "ns", "ctx", "cm.yml", fake)
	if diff := cmp.Diff(snapshot(a), snapshot(b)); diff != "" {
		t.Errorf("ForType is not idempotent (-a +b):\n%s", diff)
	}
}

func TestDeploymentSuccessLaw(t *testing.T) {
	depJSON := `{
		"metadata": {"name": "web", "uid": "dep-uid", "annotations": {"deployment.kubernetes.io/revision": "3"}},
		"spec": {"selector": {"matchLabels": {"app": "web"}}},
		"status": {"replicas": 2, "updatedReplicas": 2, "availableReplicas": 2, "unavailableReplicas": 0}
	}`
	rsJSON := `{
		"items": [{
			"metadata": {"name": "web-abc123", "uid": "rs-uid", "annotations": {"deployment.kubernetes.io/revision": "3"},
				"ownerReferences": [{"uid": "dep-uid"}]},
			"spec": {"selector": {"matchLabels": {"app": "web"}}},
			"status": {"replicas": 2, "availableReplicas": 2, "readyReplicas": 2}
		}]
	}`

	fake := cluster.NewFakeClient()
	fake.When("get deployment web --output=json", cluster.Result{ExitCode: 0, Stdout: depJSON})
	fake.When("get replicasets --output=json", cluster.Result{ExitCode: 0, Stdout: rsJSON})
	fake.When("get pods -a --output=json", cluster.Result{ExitCode: 0, Stdout: `{"items": []}`})

	f := NewFactory()
	r := f.ForType("Deployment", "web", "ns", "ctx", "dep.yml", fake)
	require.NoError(t, r.Sync(context.Background()))
	assert.True(t, r.DeploySucceeded())

	// Mutate one counter to break the equality and confirm it flips false.
	unequalDepJSON := `{
		"metadata": {"name": "web", "uid": "dep-uid", "annotations": {"deployment.kubernetes.io/revision": "3"}},
		"spec": {"selector": {"matchLabels": {"app": "web"}}},
		"status": {"replicas": 2, "updatedReplicas": 1, "availableReplicas": 2, "unavailableReplicas": 0}
	}`
	fake2 := cluster.NewFakeClient()
	fake2.When("get deployment web --output=json", cluster.Result{ExitCode: 0, Stdout: unequalDepJSON})
	fake2.When("get replicasets --output=json", cluster.Result{ExitCode: 0, Stdout: rsJSON})
	fake2.When("get pods -a --output=json", cluster.Result{ExitCode: 0, Stdout: `{"items": []}`})

	r2 := f.ForType("Deployment", "web", "ns", "ctx", "dep.yml", fake2)
	require.NoError(t, r2.Sync(context.Background()))
	assert.False(t, r2.DeploySucceeded())
}

func TestDeploymentPropagatesRevisionAndOwnerToChildRS(t *testing.T) {
	depJSON := `{
		"metadata": {"name": "web", "uid": "dep-uid", "annotations": {"deployment.kubernetes.io/revision": "7"}},
		"spec": {"selector": {"matchLabels": {"app": "web"}}},
		"status": {"replicas": 1, "updatedReplicas": 1, "availableReplicas": 1, "unavailableReplicas": 0}
	}`
	rsJSON := `{
		"items": [{
			"metadata": {"name": "web-xyz", "uid": "rs-uid", "annotations": {"deployment.kubernetes.io/revision": "7"},
				"ownerReferences": [{"uid": "dep-uid"}]},
			"spec": {"selector": {"matchLabels": {"app": "web"}}},
			"status": {"replicas": 1, "availableReplicas": 1, "readyReplicas": 1}
		}]
	}`

	fake := cluster.NewFakeClient()
	fake.When("get deployment web --output=json", cluster.Result{ExitCode: 0, Stdout: depJSON})
	fake.When("get replicasets --output=json", cluster.Result{ExitCode: 0, Stdout: rsJSON})
	fake.When("get pods -a --output=json", cluster.Result{ExitCode: 0, Stdout: `{"items": []}`})

	f := NewFactory()
	r := f.ForType("Deployment", "web", "ns", "ctx", "dep.yml", fake).(*Deployment)
	require.NoError(t, r.Sync(context.Background()))
	require.NotNil(t, r.LatestReplicaSet())
	assert.Equal(t, "ReplicaSet/web-xyz", r.LatestReplicaSet().ID())
}

func TestReplicaSetPodsOwnedByRSUID(t *testing.T) {
	rsJSON := `{
		"metadata": {"name": "web-abc", "uid": "rs-uid"},
		"spec": {"selector": {"matchLabels": {"app": "web"}}},
		"status": {"replicas": 2, "availableReplicas": 1, "readyReplicas": 1}
	}`
	podsJSON := `{
		"items": [
			{"metadata": {"name": "web-abc-1", "ownerReferences": [{"uid": "rs-uid"}]}, "status": {"phase": "Running"}},
			{"metadata": {"name": "other-pod", "ownerReferences": [{"uid": "some-other-uid"}]}, "status": {"phase": "Running"}}
		]
	}`

	fake := cluster.NewFakeClient()
	fake.When("get replicaset web-abc --output=json", cluster.Result{ExitCode: 0, Stdout: rsJSON})
	fake.When("get pods -a --output=json", cluster.Result{ExitCode: 0, Stdout: podsJSON})

	f := NewFactory()
	r := f.ForType("ReplicaSet", "web-abc", "ns", "ctx", "rs.yml", fake).(*ReplicaSet)
	require.NoError(t, r.Sync(context.Background()))
	require.Len(t, r.Pods(), 1)
	assert.Equal(t, "web-abc-1", r.Pods()[0].Name())
}

func TestServiceRequiresEndpointsMatchingUniqueDeployment(t *testing.T) {
	svcJSON := `{"spec": {"selector": {"app": "web"}}}`
	depListJSON := `{"items": [{"metadata": {"name": "web", "uid": "dep-uid"}, "spec": {"selector": {"matchLabels": {"app": "web"}}}, "status": {"replicas": 2}}]}`

	// spec.replicas is the desired count (2); status.replicas is a
	// transiently stale mid-rollout value (1). DeploySucceeded must compare
	// against spec.replicas, not status.replicas.
	depJSON := `{"metadata": {"name": "web"}, "spec": {"replicas": 2}, "status": {"replicas": 1}}`

	fake := cluster.NewFakeClient()
	fake.When("get service app-svc --output=json", cluster.Result{ExitCode: 0, Stdout: svcJSON})
	fake.When("get endpoints app-svc", cluster.Result{ExitCode: 0, Stdout: "10.0.0.1 10.0.0.2"})
	fake.When("get deployments --output=json", cluster.Result{ExitCode: 0, Stdout: depListJSON})
	fake.When("get deployment web --output=json", cluster.Result{ExitCode: 0, Stdout: depJSON})
	fake.When("get replicasets --output=json", cluster.Result{ExitCode: 1})

	f := NewFactory()
	s := f.ForType("Service", "app-svc", "ns", "ctx", "svc.yml", fake)
	require.NoError(t, s.Sync(context.Background()))
	assert.True(t, s.DeploySucceeded())
}

func TestServiceTimesOutWithoutEnoughEndpoints(t *testing.T) {
	svcJSON := `{"spec": {"selector": {"app": "web"}}}`
	depJSON := `{"metadata": {"name": "web"}, "spec": {"replicas": 2}, "status": {"replicas": 2}}`

	fake := cluster.NewFakeClient()
	fake.When("get service app-svc --output=json", cluster.Result{ExitCode: 0, Stdout: svcJSON})
	fake.When("get endpoints app-svc", cluster.Result{ExitCode: 0, Stdout: "10.0.0.1"})
	fake.When("get deployments --output=json", cluster.Result{ExitCode: 0, Stdout: `{"items": [{"metadata":{"name":"web"},"spec":{"selector":{"matchLabels":{"app":"web"}}},"status":{"replicas":2}}]}`})
	fake.When("get deployment web --output=json", cluster.Result{ExitCode: 0, Stdout: depJSON})
	fake.When("get replicasets --output=json", cluster.Result{ExitCode: 1})

	f := NewFactory()
	s := f.ForType("Service", "app-svc", "ns", "ctx", "svc.yml", fake)
	require.NoError(t, s.Sync(context.Background()))
	assert.False(t, s.DeploySucceeded())

	past := time.Now().Add(-6 * time.Minute)
	s.SetDeployStartedAt(past)
	assert.True(t, s.DeployTimedOut())
}
