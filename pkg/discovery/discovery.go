// Package discovery implements TemplateDiscovery (spec §4.5): it enumerates
// a template directory, renders each file, splits multi-document streams,
// dry-run validates every document against the cluster, and materializes
// per-document files for later apply/replace.
package discovery

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/kustomize/kyaml/kio"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
	"deploy.dev/kubernetes-deploy/pkg/render"
	"deploy.dev/kubernetes-deploy/pkg/resource"
	"deploy.dev/kubernetes-deploy/pkg/status"
)

// canonicalKind maps the lowercase resource-type token the cluster CLI's
// dry-run --output=name emits back to the PascalCase Kind tag Resource
// kinds are keyed on. A token absent from this table has its first letter
// upper-cased (custom resources such as "cloudsql" become "Cloudsql").
var canonicalKind = map[string]string{
	"configmap":             "ConfigMap",
	"service":               "Service",
	"deployment":            "Deployment",
	"replicaset":            "ReplicaSet",
	"pod":                   "Pod",
	"ingress":               "Ingress",
	"persistentvolumeclaim": "PersistentVolumeClaim",
	"poddisruptionbudget":   "PodDisruptionBudget",
	"podtemplate":           "PodTemplate",
}

// Discovery enumerates and validates templates, producing the initial
// Resource set for a deploy.
type Discovery struct {
	TemplateDir string
	Bindings    map[string]string
	Namespace   string
	Context     string
	Client      cluster.Client
	Renderer    render.Renderer
	Factory     *resource.Factory
	TempDir     string
}

// Document is one materialized manifest ready for apply/replace, paired
// with the Resource ResourceFactory built for it.
type Document struct {
	Resource resource.Resource
	Path     string
}

// Discover implements spec §4.5 steps 1-6.
func (d *Discovery) Discover(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(d.TemplateDir)
	if err != nil {
		return nil, status.Wrap(status.InvalidConfiguration, err, "reading template directory %q", d.TemplateDir)
	}

	var docs []Document
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yml.erb")) {
			continue
		}
		fileDocs, err := d.discoverFile(ctx, filepath.Join(d.TemplateDir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

func (d *Discovery) discoverFile(ctx context.Context, path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, status.Wrap(status.InvalidTemplate, err, "reading template %q", path)
	}

	rendered, err := d.Renderer(path, string(raw), d.Bindings)
	if err != nil {
		return nil, status.Wrap(status.InvalidTemplate, err, "rendering template %q", path)
	}

	texts, err := splitDocuments(rendered)
	if err != nil {
		return nil, status.Wrap(status.InvalidTemplate, err, "splitting %q into documents", path)
	}

	var out []Document
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		tempPath, err := d.writeTempFile(path, i, text)
		if err != nil {
			return nil, status.Wrap(status.InvalidTemplate, err, "materializing document %d of %q", i, path)
		}

		kind, name, err := d.dryRunValidate(ctx, tempPath, text)
		if err != nil {
			return nil, err
		}

		res := d.Factory.ForType(kind, name, d.Namespace, d.Context, tempPath, d.Client)
		out = append(out, Document{Resource: res, Path: tempPath})
	}
	return out, nil
}

// splitDocuments breaks a multi-document YAML stream into individual
// documents using kyaml's node reader, the same splitter kpt itself uses to
// break a package's raw YAML into per-resource nodes while preserving
// comments and formatting.
func splitDocuments(text string) ([]string, error) {
	nodes, err := kio.FromBytes([]byte(text))
	if err != nil {
		return nil, err
	}
	docs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		s, err := n.String()
		if err != nil {
			return nil, err
		}
		docs = append(docs, s)
	}
	return docs, nil
}

func (d *Discovery) writeTempFile(sourcePath string, index int, text string) (string, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(sourcePath), ".erb"), ".yml")
	name := fmt.Sprintf("%s-%d.yml", base, index)
	tempPath := filepath.Join(d.tempDir(), name)
	if err := os.WriteFile(tempPath, []byte(text), 0o644); err != nil {
		return "", err
	}
	return tempPath, nil
}

func (d *Discovery) tempDir() string {
	if d.TempDir != "" {
		return d.TempDir
	}
	return os.TempDir()
}

// dryRunValidate implements step 5: a failing dry-run raises InvalidTemplate
// with the rendered content and the CLI's stderr.
func (d *Discovery) dryRunValidate(ctx context.Context, path, rendered string) (kind, name string, err error) {
	result, runErr := d.Client.Run(ctx, cluster.DefaultOptions(), "create", "-f", path, "--dry-run", "--output=name")
	if runErr != nil {
		return "", "", status.Wrap(status.InvalidTemplate, runErr, "dry-run for %q", path)
	}
	if !result.Success() {
		e := status.New(status.InvalidTemplate, "dry-run rejected %q", path)
		return "", "", status.WithDebugInfo(e, "rendered:\n"+rendered+"\n\nstderr:\n"+result.Stderr)
	}
	kind, name, perr := parseDryRunOutput(result.Stdout)
	if perr != nil {
		e := status.New(status.InvalidTemplate, "could not parse dry-run output for %q: %v", path, perr)
		return "", "", status.WithDebugInfo(e, result.Stdout)
	}
	return kind, name, nil
}

// parseDryRunOutput parses a "kind/name" line (spec §4.5 step 6). The
// cluster CLI's --output=name form is lowercase and may carry an API-group
// suffix (e.g. "deployment.apps/web"); canonicalKind maps the group-free
// prefix back to the PascalCase tag ResourceFactory expects.
func parseDryRunOutput(stdout string) (kind, name string, err error) {
	line := strings.TrimSpace(stdout)
	if line == "" {
		return "", "", fmt.Errorf("empty dry-run output")
	}
	scanner := bufio.NewScanner(strings.NewReader(line))
	scanner.Scan()
	line = scanner.Text()

	parts := strings.SplitN(line, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unexpected dry-run output %q", line)
	}
	kindToken := strings.SplitN(parts[0], ".", 2)[0]
	if canon, ok := canonicalKind[kindToken]; ok {
		kind = canon
	} else {
		kind = strings.Title(kindToken) //nolint:staticcheck // simple ASCII kind names only
	}
	return kind, parts[1], nil
}
