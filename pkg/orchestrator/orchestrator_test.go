package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
	"deploy.dev/kubernetes-deploy/pkg/config"
	"deploy.dev/kubernetes-deploy/pkg/render"
	"deploy.dev/kubernetes-deploy/pkg/secrets"
)

func writeConfigMapTemplate(t *testing.T, dir string) {
	t.Helper()
	content := "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: app-config\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cm.yml"), []byte(content), 0o644))
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeConfigMapTemplate(t, dir)
	kubeconfig := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(kubeconfig, []byte("apiVersion: v1"), 0o644))

	t.Setenv("KUBECONFIG", kubeconfig)
	t.Setenv("REVISION", "abc1234")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := config.Load("staging", "staging-cluster", config.Flags{TemplateDir: dir})
	require.NoError(t, err)
	return cfg
}

func TestRunSucceedsWhenClusterConfirmsAndApplySucceeds(t *testing.T) {
	cfg := newTestConfig(t)

	fake := cluster.NewFakeClient()
	fake.When("config get-contexts -o name", cluster.Result{ExitCode: 0, Stdout: "staging-cluster\nother-cluster\n"})
	fake.When("get namespace staging", cluster.Result{ExitCode: 0})
	fake.When("create -f", cluster.Result{ExitCode: 0, Stdout: "configmap/app-config\n"})
	fake.When("get ConfigMap app-config", cluster.Result{ExitCode: 0})
	fake.When("apply", cluster.Result{ExitCode: 0})
	fake.When("version --short", cluster.Result{ExitCode: 0, Stdout: "Server Version: v1.22.0\n"})

	orch := New(cfg, fake, render.BindingsRenderer, secrets.NoOp{})
	err := orch.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunFailsWhenClusterUnreachable(t *testing.T) {
	cfg := newTestConfig(t)

	fake := cluster.NewFakeClient()
	fake.When("config get-contexts -o name", cluster.Result{ExitCode: 0, Stdout: "staging-cluster\n"})
	fake.When("get namespace staging", cluster.Result{ExitCode: 1, Stderr: "namespaces \"staging\" not found"})

	orch := New(cfg, fake, render.BindingsRenderer, secrets.NoOp{})
	err := orch.Run(context.Background())
	require.Error(t, err)
	require.Len(t, err.Errors(), 1)
	assert.Equal(t, "ClusterUnreachable", string(err.Errors()[0].Code()))
}

func TestRunFailsWhenContextMissingFromGetContexts(t *testing.T) {
	cfg := newTestConfig(t)

	fake := cluster.NewFakeClient()
	fake.When("config get-contexts -o name", cluster.Result{ExitCode: 0, Stdout: "other-cluster\n"})

	orch := New(cfg, fake, render.BindingsRenderer, secrets.NoOp{})
	err := orch.Run(context.Background())
	require.Error(t, err)
	require.Len(t, err.Errors(), 1)
	assert.Equal(t, "ClusterUnreachable", string(err.Errors()[0].Code()))

	for _, call := range fake.Calls() {
		require.NotEqual(t, "namespace", firstOrEmpty(call.Args, 1), "namespace check must not run when the context check fails")
	}
}

func firstOrEmpty(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
