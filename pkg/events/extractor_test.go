package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
)

func rawRecord(kind, name string, count int, ts, reason, message string) string {
	return kind + fieldSep + name + fieldSep + itoa(count) + fieldSep + ts + fieldSep + reason + fieldSep + message + recordSep
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	s := ""
	for i > 0 {
		s = string(rune('0'+i%10)) + s
		i /= 10
	}
	return s
}

func TestParseRoundTripsRecordCount(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	raw := rawRecord("Pod", "web-1", 3, now, "BackOff", "crash looping") +
		rawRecord("Pod", "web-1", 1, now, "Unhealthy", "readiness probe failed")

	recs := parse(raw)
	require.Len(t, recs, 2)
	assert.Equal(t, "BackOff", recs[0].reason)
	assert.Equal(t, 3, recs[0].count)
}

func TestFetchFiltersEventsBeforeCutoff(t *testing.T) {
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fresh := started.Add(10 * time.Second).Format(time.RFC3339)
	stale := started.Add(-time.Hour).Format(time.RFC3339)

	raw := rawRecord("Pod", "web-1", 2, fresh, "BackOff", "crash looping") +
		rawRecord("Pod", "web-1", 5, stale, "BackOff", "old crash")

	fake := cluster.NewFakeClient()
	fake.When("get events", cluster.Result{Stdout: raw, ExitCode: 0})

	got, err := Fetch(nil, fake, started) //nolint:staticcheck // fake client ignores ctx
	require.NoError(t, err)
	require.Contains(t, got, "Pod/web-1")
	assert.Len(t, got["Pod/web-1"], 1)
	assert.Contains(t, got["Pod/web-1"][0], "crash looping")
}
