// Package orchestrator implements the top-level state machine (spec §4.8):
// validate config, confirm the cluster is reachable, discover and validate
// templates, sync existing resources, provision secrets, predeploy fixed-
// priority kinds to convergence, deploy the rest, watch until finished, and
// render a verdict.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
	"deploy.dev/kubernetes-deploy/pkg/config"
	"deploy.dev/kubernetes-deploy/pkg/deploy"
	"deploy.dev/kubernetes-deploy/pkg/discovery"
	"deploy.dev/kubernetes-deploy/pkg/kinds"
	"deploy.dev/kubernetes-deploy/pkg/render"
	"deploy.dev/kubernetes-deploy/pkg/resource"
	"deploy.dev/kubernetes-deploy/pkg/secrets"
	"deploy.dev/kubernetes-deploy/pkg/status"
	"deploy.dev/kubernetes-deploy/pkg/watch"
)

// Orchestrator drives one deploy end to end for a fully-resolved Config.
type Orchestrator struct {
	Config      *config.Config
	Client      cluster.Client
	Renderer    render.Renderer
	Provisioner secrets.Provisioner
	Watcher     *watch.ResourceWatcher

	// logPrefix mirrors Config.VerboseLogPrefix (spec §6 ambient logging):
	// "[namespace/context] " prepended to the lines the orchestrator, its
	// watcher and its deployer log, so concurrent deploys interleaved in
	// shared output stay attributable.
	logPrefix string
}

// New wires the standard collaborators for cfg, so callers only need to
// supply the parts spec §6 treats as external (client, renderer,
// provisioner). Run builds the Discovery and its ResourceFactory itself;
// Discovery's temp files go to the system temp directory.
func New(cfg *config.Config, client cluster.Client, renderer render.Renderer, provisioner secrets.Provisioner) *Orchestrator {
	if provisioner == nil {
		provisioner = secrets.NoOp{}
	}
	var prefix string
	if cfg.VerboseLogPrefix {
		prefix = fmt.Sprintf("[%s/%s] ", cfg.Namespace, cfg.Context)
	}
	return &Orchestrator{
		Config:      cfg,
		Client:      client,
		Renderer:    renderer,
		Provisioner: provisioner,
		Watcher:     &watch.ResourceWatcher{Parallel: true, LogPrefix: prefix},
		logPrefix:   prefix,
	}
}

// Run executes the nine states of spec §4.8 and returns the aggregated
// failure, or nil on a clean rollout.
func (o *Orchestrator) Run(ctx context.Context) status.MultiError {
	// State 1: Validating. Config is already validated by config.Load;
	// nothing left to check here besides restating the invariant.
	glog.Infof("%sdeploying %s to namespace %q, context %q", o.logPrefix, o.Config.TemplateDir, o.Config.Namespace, o.Config.Context)

	// State 2: Confirming cluster.
	if err := o.confirmCluster(ctx); err != nil {
		return status.Append(nil, err)
	}

	// State 3: Discovering.
	bindings := render.Bindings(o.Config.CurrentSHA, o.Config.Bindings)
	disc := &discovery.Discovery{
		TemplateDir: o.Config.TemplateDir,
		Bindings:    bindings,
		Namespace:   o.Config.Namespace,
		Context:     o.Config.Context,
		Client:      o.Client,
		Renderer:    o.Renderer,
		Factory:     resource.NewFactory(),
	}
	docs, err := disc.Discover(ctx)
	if err != nil {
		return status.Append(nil, err)
	}
	resources := make([]resource.Resource, 0, len(docs))
	for _, d := range docs {
		resources = append(resources, d.Resource)
	}

	// State 4: Initial sync, so predeploy/deploy decisions see current
	// cluster state rather than zero values.
	for _, r := range resources {
		if err := r.Sync(ctx); err != nil {
			glog.Warningf("%sinitial sync failed for %s/%s: %v", o.logPrefix, r.Kind(), r.Name(), err)
		}
	}

	// State 5: Provisioning secrets.
	if err := o.provisionSecrets(); err != nil {
		return status.Append(nil, err)
	}

	deployer := &deploy.Deployer{Client: o.Client, Namespace: o.Config.Namespace, Prune: o.Config.Prune, LogPrefix: o.logPrefix}

	// State 6: Predeploying, one kind at a time to full convergence.
	deployed := map[string]bool{}
	for _, kind := range kinds.PredeploySequence {
		var batch []resource.Resource
		for _, r := range resources {
			if r.Kind() == kind {
				batch = append(batch, r)
			}
		}
		if len(batch) == 0 {
			continue
		}
		if err := o.deployAndWait(ctx, deployer, batch); err != nil {
			return err
		}
		for _, r := range batch {
			deployed[resourceID(r)] = true
		}
	}

	// State 7: Deploying everything else.
	var remaining []resource.Resource
	for _, r := range resources {
		if deployed[resourceID(r)] {
			continue
		}
		remaining = append(remaining, r)
	}
	if o.Config.SkipWait {
		if err := deployer.Deploy(ctx, remaining); err != nil {
			return err
		}
		return nil
	}
	if err := o.deployAndWait(ctx, deployer, remaining); err != nil {
		return err
	}

	return nil
}

// confirmCluster implements state 2 (spec §4.8 state 2, §6, §7): the
// requested context must appear in "config get-contexts", and "get
// namespace" against it must succeed.
func (o *Orchestrator) confirmCluster(ctx context.Context) status.Error {
	result, err := o.Client.Run(ctx, cluster.RunOptions{UseNamespace: false, UseContext: false, LogFailure: true}, "config", "get-contexts", "-o", "name")
	if err != nil {
		return status.Wrap(status.ClusterUnreachable, err, "listing contexts")
	}
	if !result.Success() || !hasContext(result.Stdout, o.Config.Context) {
		return status.New(status.ClusterUnreachable, "context %q not found in config get-contexts: %s", o.Config.Context, result.Stderr)
	}

	result, err = o.Client.Run(ctx, cluster.RunOptions{UseNamespace: false, UseContext: true, LogFailure: true}, "get", "namespace", o.Config.Namespace)
	if err != nil {
		return status.Wrap(status.ClusterUnreachable, err, "confirming cluster reachability")
	}
	if !result.Success() {
		return status.New(status.ClusterUnreachable, "namespace %q not found in context %q: %s", o.Config.Namespace, o.Config.Context, result.Stderr)
	}
	return nil
}

// hasContext reports whether contextsOutput ("config get-contexts -o name"'s
// newline-separated stdout) names context.
func hasContext(contextsOutput, context string) bool {
	for _, line := range strings.Split(contextsOutput, "\n") {
		if strings.TrimSpace(line) == context {
			return true
		}
	}
	return false
}

// provisionSecrets implements state 5.
func (o *Orchestrator) provisionSecrets() status.Error {
	required, err := o.Provisioner.ChangesRequired()
	if err != nil {
		return status.Wrap(status.InvalidConfiguration, err, "checking secrets provisioner")
	}
	if !required {
		return nil
	}
	if err := o.Provisioner.Apply(); err != nil {
		return status.Wrap(status.InvalidConfiguration, err, "applying secrets")
	}
	return nil
}

// deployAndWait submits batch and blocks (state 8) until every resource in
// it finishes, returning a ResourceFailed MultiError naming the resources
// that failed or timed out (state 9's failure branch).
func (o *Orchestrator) deployAndWait(ctx context.Context, deployer *deploy.Deployer, batch []resource.Resource) status.MultiError {
	if err := deployer.Deploy(ctx, batch); err != nil {
		return err
	}

	final := o.Watcher.Watch(ctx, batch)

	var errs status.MultiError
	for _, r := range final {
		if r.DeploySucceeded() {
			continue
		}
		errs = status.Append(errs, resourceFailure(ctx, r))
	}
	return errs
}

// resourceFailure builds the ResourceFailed error for a resource that
// didn't succeed, including its debug message (events/logs) per spec §4.3's
// DebugMessage contract.
func resourceFailure(ctx context.Context, r resource.Resource) status.Error {
	reason := "timed out"
	if r.DeployFailed() {
		reason = "failed"
	}
	e := status.New(status.ResourceFailed, "%s %s/%s: %s", reason, r.Kind(), r.Name(), r.PrettyStatus())
	return status.WithDebugInfo(e, r.DebugMessage(ctx))
}

// resourceID matches Base.ID's "(kind, name)" identity without depending on
// a method the Resource interface doesn't expose.
func resourceID(r resource.Resource) string {
	return r.Kind() + "/" + r.Name()
}
