// Package events implements the EventExtractor described in spec §4.4: it
// builds a templated cluster-CLI query for the namespace's events and parses
// the delimited response into event lists keyed by "<kind>/<name>".
package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
)

// Separators delimit fields within a record and records within the stream.
// They're passed to the go-template query and used again to parse its
// output; any pair works as long as it can't appear in a message.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// record is one parsed event line.
type record struct {
	kind          string
	name          string
	count         int
	lastTimestamp time.Time
	reason        string
	message       string
}

// query builds the "get events --output=go-template=..." argument that
// filters out Started/Created events at query time.
func query() string {
	tmpl := fmt.Sprintf(
		`{{range .items}}{{if and (ne .reason "Started") (ne .reason "Created")}}`+
			`{{.involvedObject.kind}}%s{{.involvedObject.name}}%s{{.count}}%s{{.lastTimestamp}}%s{{.reason}}%s{{.message}}%s`+
			`{{end}}{{end}}`,
		fieldSep, fieldSep, fieldSep, fieldSep, fieldSep, recordSep)
	return "--output=go-template=" + tmpl
}

func parse(raw string) []record {
	var out []record
	for _, chunk := range strings.Split(raw, recordSep) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		fields := strings.Split(chunk, fieldSep)
		if len(fields) != 6 {
			continue
		}
		count, _ := strconv.Atoi(fields[2])
		ts, _ := time.Parse(time.RFC3339, fields[3])
		out = append(out, record{
			kind:          fields[0],
			name:          fields[1],
			count:         count,
			lastTimestamp: ts,
			reason:        fields[4],
			message:       fields[5],
		})
	}
	return out
}

// Fetch runs the templated events query and returns a map of
// "<kind>/<name>" to formatted event texts, restricted to records whose
// lastTimestamp is at or after deployStartedAt-5s (the "seen" cutoff).
func Fetch(ctx context.Context, c cluster.Client, deployStartedAt time.Time) (map[string][]string, error) {
	result, err := c.Run(ctx, cluster.DefaultOptions(), "get", "events", query())
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return nil, fmt.Errorf("get events failed: %s", result.Stderr)
	}

	cutoff := deployStartedAt.Add(-5 * time.Second)
	out := map[string][]string{}
	for _, r := range parse(result.Stdout) {
		if r.lastTimestamp.Before(cutoff) {
			continue
		}
		id := r.kind + "/" + r.name
		text := fmt.Sprintf("%s: %s (%d events)", r.reason, r.message, r.count)
		out[id] = append(out[id], text)
	}
	return out, nil
}
