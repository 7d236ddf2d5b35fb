// Package watch implements ResourceWatcher (spec §4.7): it polls the set of
// deployed resources until every one finishes (succeeds, fails, or times
// out), logging status transitions as they happen.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"deploy.dev/kubernetes-deploy/pkg/resource"
)

// PollInterval is how often the watcher re-syncs active resources. Spec §4.7
// allows 3-5s; we pick the middle of that range. Var, not const, so tests
// can shrink it.
var PollInterval = 4 * time.Second

// ResourceWatcher polls a fixed resource set to convergence.
type ResourceWatcher struct {
	// Parallel enables concurrent Sync calls across active resources in
	// each poll round (spec §5 permits, doesn't require, this).
	Parallel bool

	// LogPrefix, when non-empty, is prepended to every status/warning line
	// this watcher logs (--verbose-log-prefix, spec §6 ambient logging).
	LogPrefix string
}

// Watch blocks until every resource in resources has DeployFinished, or ctx
// is cancelled. It returns the final resource set for the caller to render a
// verdict from.
func (w *ResourceWatcher) Watch(ctx context.Context, resources []resource.Resource) []resource.Resource {
	var logMu sync.Mutex

	for {
		active := activeResources(resources)
		if len(active) == 0 {
			return resources
		}

		select {
		case <-ctx.Done():
			return resources
		default:
		}

		if w.Parallel {
			var wg sync.WaitGroup
			for _, r := range active {
				r := r
				wg.Add(1)
				go func() {
					defer wg.Done()
					w.syncOne(ctx, r, &logMu)
				}()
			}
			wg.Wait()
		} else {
			for _, r := range active {
				w.syncOne(ctx, r, &logMu)
			}
		}

		select {
		case <-ctx.Done():
			return resources
		case <-time.After(PollInterval):
		}
	}
}

func (w *ResourceWatcher) syncOne(ctx context.Context, r resource.Resource, logMu *sync.Mutex) {
	before := r.PrettyStatus()
	if err := r.Sync(ctx); err != nil {
		glog.Warningf("%ssync failed for %s/%s: %v", w.LogPrefix, r.Kind(), r.Name(), err)
	}
	after := r.PrettyStatus()

	if before == after {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	glog.Infof("%s%s", w.LogPrefix, after)
}

func activeResources(resources []resource.Resource) []resource.Resource {
	var active []resource.Resource
	for _, r := range resources {
		if !r.DeployFinished() {
			active = append(active, r)
		}
	}
	return active
}
