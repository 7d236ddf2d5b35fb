// Package render defines the Renderer contract spec §6 treats as an
// external collaborator, plus a default implementation good enough to
// exercise the pipeline end-to-end.
package render

import (
	"strings"

	"github.com/google/uuid"
)

// Renderer maps a filename and raw template text to expanded text, given a
// bindings map. Implementations are free to use any templating engine;
// TemplateDiscovery only depends on this function signature.
type Renderer func(filename string, rawText string, bindings map[string]string) (string, error)

// Bindings builds the bindings map every render call receives: current_sha,
// a synthetic deployment_id, and the caller-supplied bindings layered on
// top (spec §6 Renderer contract).
func Bindings(currentSHA string, userBindings map[string]string) map[string]string {
	short := currentSHA
	if len(short) > 8 {
		short = short[:8]
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}

	bindings := map[string]string{
		"current_sha":   currentSHA,
		"deployment_id": short + "-" + suffix,
	}
	for k, v := range userBindings {
		bindings[k] = v
	}
	return bindings
}

// BindingsRenderer is a minimal `{{key}}`-substitution renderer: every
// occurrence of {{key}} in rawText is replaced by bindings[key]. It does not
// attempt control flow or the ERB-style expansion spec.md's original engine
// used (that's explicitly out of scope, see spec §1); it exists so the CLI
// has a usable default without requiring callers to bring their own
// Renderer just to exercise the pipeline.
func BindingsRenderer(_ string, rawText string, bindings map[string]string) (string, error) {
	out := rawText
	for k, v := range bindings {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out, nil
}
