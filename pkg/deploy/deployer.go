// Package deploy implements the Deployer (spec §4.6): it partitions
// resources by deploy method, submits all "apply" resources in one batch
// with an optional prune whitelist, and issues one CLI call per
// "replace"/"replace_force" resource, falling back to create when the
// target doesn't exist yet.
package deploy

import (
	"context"
	"os"
	"regexp"
	"time"

	"github.com/golang/glog"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
	"deploy.dev/kubernetes-deploy/pkg/kinds"
	"deploy.dev/kubernetes-deploy/pkg/resource"
	"deploy.dev/kubernetes-deploy/pkg/status"
)

// Deployer submits a resource set to the cluster.
type Deployer struct {
	Client    cluster.Client
	Namespace string
	Prune     bool

	// LogPrefix, when non-empty, is prepended to lines this deployer logs
	// (--verbose-log-prefix, spec §6 ambient logging).
	LogPrefix string
}

// Deploy implements spec §5's pragmatic ordering: individual replaces
// first, then the apply batch — so that every resource's deploy_started_at
// is set before the caller hands the set to the watcher.
func (d *Deployer) Deploy(ctx context.Context, resources []resource.Resource) status.MultiError {
	if d.Prune && kinds.IsProtected(d.Namespace) {
		return status.Append(nil, status.New(status.InvalidConfiguration,
			"refusing prune-enabled deploy to protected namespace %q", d.Namespace))
	}

	var applyBatch []resource.Resource
	var replaceSet []resource.Resource
	for _, r := range resources {
		switch r.DeployMethod() {
		case resource.MethodApply:
			applyBatch = append(applyBatch, r)
		case resource.MethodReplace, resource.MethodReplaceForce:
			replaceSet = append(replaceSet, r)
		}
	}

	var errs status.MultiError
	if err := d.replaceEach(ctx, replaceSet); err != nil {
		errs = status.Append(errs, err)
	}
	if err := d.applyAll(ctx, applyBatch); err != nil {
		errs = status.Append(errs, err)
	}
	return errs
}

func (d *Deployer) replaceEach(ctx context.Context, resources []resource.Resource) status.MultiError {
	var errs status.MultiError
	for _, r := range resources {
		r.SetDeployStartedAt(time.Now().UTC())

		args := []string{"replace"}
		if r.DeployMethod() == resource.MethodReplaceForce {
			args = append(args, "--force")
		}
		args = append(args, "-f", r.ManifestPath())

		result, err := d.Client.Run(ctx, cluster.DefaultOptions(), args...)
		if err != nil {
			errs = status.Append(errs, status.Wrap(status.ReplaceFailed, err, "replace %s", r.ManifestPath()))
			continue
		}
		if result.Success() {
			continue
		}

		glog.Infof("%sreplace failed for %s/%s, falling back to create: %s", d.LogPrefix, r.Kind(), r.Name(), result.Stderr)
		createResult, err := d.Client.Run(ctx, cluster.DefaultOptions(), "create", "-f", r.ManifestPath())
		if err != nil {
			errs = status.Append(errs, status.Wrap(status.ReplaceFailed, err, "create fallback for %s", r.ManifestPath()))
			continue
		}
		if !createResult.Success() {
			e := status.New(status.ReplaceFailed, "replace and create both failed for %s/%s", r.Kind(), r.Name())
			errs = status.Append(errs, status.WithDebugInfo(e, "replace stderr:\n"+result.Stderr+"\n\ncreate stderr:\n"+createResult.Stderr))
		}
	}
	return errs
}

func (d *Deployer) applyAll(ctx context.Context, resources []resource.Resource) status.Error {
	if len(resources) == 0 {
		return nil
	}

	started := time.Now().UTC()
	args := []string{"apply"}
	for _, r := range resources {
		r.SetDeployStartedAt(started)
		args = append(args, "-f", r.ManifestPath())
	}

	if d.Prune {
		args = append(args, "--prune", "--all")
		for _, kind := range d.pruneWhitelist(ctx) {
			args = append(args, "--prune-whitelist="+kind)
		}
	}

	result, err := d.Client.Run(ctx, cluster.DefaultOptions(), args...)
	if err != nil {
		return status.Wrap(status.ApplyFailed, err, "apply batch")
	}
	if result.Success() {
		return nil
	}
	return applyFailure(result.Stderr)
}

// pruneWhitelist appends the HorizontalPodAutoscaler entry that matches the
// detected server version to the stable base list (spec §4.6/§9).
func (d *Deployer) pruneWhitelist(ctx context.Context) []string {
	whitelist := append([]string{}, kinds.PruneWhitelistBase...)
	if isLegacyServer(serverMinorVersion(ctx, d.Client)) {
		return append(whitelist, kinds.HPAWhitelistEntryLegacy)
	}
	return append(whitelist, kinds.HPAWhitelistEntryCurrent)
}

// offendingFileRegexp extracts a file path of the form
// "/path/to/<name>.yml..." from apply-batch stderr (spec §4.6 last
// paragraph).
var offendingFileRegexp = regexp.MustCompile(`(/\S+\.yml\S*)`)

// applyFailure builds the ApplyFailed error, best-effort including the
// offending template's contents when stderr names a readable file.
func applyFailure(stderr string) status.Error {
	e := status.New(status.ApplyFailed, "apply batch failed")
	match := offendingFileRegexp.FindStringSubmatch(stderr)
	if match == nil {
		return status.WithDebugInfo(e, "one of your templates is invalid:\n"+stderr)
	}
	contents, err := os.ReadFile(match[1])
	if err != nil {
		return status.WithDebugInfo(e, "one of your templates is invalid:\n"+stderr)
	}
	return status.WithDebugInfo(e, "offending template "+match[1]+":\n"+string(contents)+"\n\nstderr:\n"+stderr)
}
