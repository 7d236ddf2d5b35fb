package resource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
	"deploy.dev/kubernetes-deploy/pkg/events"
)

func defaultOpts() cluster.RunOptions { return cluster.DefaultOptions() }

// fetchEventsFor is the shared FetchEvents implementation: it is read-only
// and idempotent per invariant 4.
func fetchEventsFor(ctx context.Context, c cluster.Client, id string, startedAt *time.Time) ([]string, error) {
	if startedAt == nil {
		return nil, nil
	}
	all, err := events.Fetch(ctx, c, *startedAt)
	if err != nil {
		return nil, err
	}
	return all[id], nil
}

// debugMessage assembles the status line plus events (and logs, if the
// Resource supports fetching them) into the payload reported for a failed
// or timed-out resource (spec §7 ResourceFailed aggregation).
func debugMessage(ctx context.Context, r Resource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.PrettyStatus())

	evs, err := r.FetchEvents(ctx)
	if err == nil && len(evs) > 0 {
		b.WriteString("events:\n")
		for _, e := range evs {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}

	logs, err := r.FetchLogs(ctx)
	if err == nil && len(logs) > 0 {
		b.WriteString("logs:\n")
		for k, v := range logs {
			fmt.Fprintf(&b, "  %s:\n%s\n", k, indentLines(v))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func indentLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
