package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
	"deploy.dev/kubernetes-deploy/pkg/render"
	"deploy.dev/kubernetes-deploy/pkg/resource"
)

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDiscoverConfigMapOnly(t *testing.T) {
	dir := t.TempDir()
	tmp := t.TempDir()
	writeTemplate(t, dir, "cm.yml", "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: app-config\n")

	fake := cluster.NewFakeClient()
	fake.When("create -f", cluster.Result{ExitCode: 0, Stdout: "configmap/app-config\n"})

	d := &Discovery{
		TemplateDir: dir,
		Bindings:    map[string]string{},
		Namespace:   "ns",
		Context:     "ctx",
		Client:      fake,
		Renderer:    render.BindingsRenderer,
		Factory:     resource.NewFactory(),
		TempDir:     tmp,
	}
	docs, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ConfigMap", docs[0].Resource.Kind())
	assert.Equal(t, "app-config", docs[0].Resource.Name())
}

func TestDiscoverRejectsInvalidTemplate(t *testing.T) {
	dir := t.TempDir()
	tmp := t.TempDir()
	writeTemplate(t, dir, "bad.yml", "apiVersion: v1\nkind: Frobnicator\nmetadata:\n  name: x\n")

	fake := cluster.NewFakeClient()
	fake.When("create -f", cluster.Result{ExitCode: 1, Stderr: "error: unable to recognize"})

	d := &Discovery{
		TemplateDir: dir,
		Bindings:    map[string]string{},
		Namespace:   "ns",
		Context:     "ctx",
		Client:      fake,
		Renderer:    render.BindingsRenderer,
		Factory:     resource.NewFactory(),
		TempDir:     tmp,
	}
	_, err := d.Discover(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidTemplate")
}

func TestParseDryRunOutputCanonicalizesKind(t *testing.T) {
	kind, name, err := parseDryRunOutput("deployment.apps/web\n")
	require.NoError(t, err)
	assert.Equal(t, "Deployment", kind)
	assert.Equal(t, "web", name)
}

func TestParseDryRunOutputPassesThroughCustomKind(t *testing.T) {
	kind, name, err := parseDryRunOutput("cloudsql/my-db\n")
	require.NoError(t, err)
	assert.Equal(t, "Cloudsql", kind)
	assert.Equal(t, "my-db", name)
}
