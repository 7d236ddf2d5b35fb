package resource

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

var warnOnce sync.Map

// Generic is the fallback Resource for kind tags ResourceFactory doesn't
// recognize (spec §4.2/§4.3): sync only verifies existence, and success is
// assumed with a one-time warning.
type Generic struct {
	Base
}

// NewGeneric builds a Generic resource with the default 5-minute timeout
// and apply deploy method (spec §4.3 "Generic / default").
func NewGeneric(b Base) *Generic {
	b.TimeoutD = 5 * time.Minute
	b.Method = MethodApply
	return &Generic{Base: b}
}

func (g *Generic) Sync(ctx context.Context) error {
	result, err := g.Client.Run(ctx, defaultOpts(), "get", g.KindTag, g.ResourceName)
	if err != nil {
		return err
	}
	if result.Success() {
		g.FoundState = FoundPresent
		g.StatusText = "exists"
	} else {
		g.FoundState = FoundAbsent
		g.StatusText = "not found"
	}
	return nil
}

func (g *Generic) Exists() bool { return g.FoundState == FoundPresent }

// DeploySucceeded always returns true for unrecognized kinds, logging a
// one-time UnrecognizedKind warning (spec §7: "not an error").
func (g *Generic) DeploySucceeded() bool {
	if _, loaded := warnOnce.LoadOrStore(g.ID(), true); !loaded {
		glog.Warningf("UnrecognizedKind: %s has no kind-specific status logic; assuming success once awaited", g.ID())
	}
	return true
}

func (g *Generic) DeployFailed() bool { return false }

func (g *Generic) FetchEvents(ctx context.Context) ([]string, error) { return fetchEventsFor(ctx, g.Client, g.ID(), g.StartedAt) }

func (g *Generic) FetchLogs(context.Context) (map[string]string, error) { return nil, nil }

func (g *Generic) DebugMessage(ctx context.Context) string { return debugMessage(ctx, g) }

func (g *Generic) DeployFinished() bool {
	return g.DeployFailed() || g.DeploySucceeded() || g.DeployTimedOut()
}
