// Package config resolves CLI flags, positional arguments, and environment
// variables into a validated Config before the orchestrator starts.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"deploy.dev/kubernetes-deploy/pkg/kinds"
)

// Config is the fully-resolved set of inputs the Orchestrator needs. It is
// built once, in main, and never mutated afterward.
type Config struct {
	Namespace  string
	Context    string
	TemplateDir string
	Bindings   map[string]string

	SkipWait          bool
	AllowProtectedNS  bool
	Prune             bool
	VerboseLogPrefix  bool

	CurrentSHA string
	KubeConfig string
}

// Flags carries the raw CLI-flag values before validation, so cmd/ can bind
// pflag vars directly into it and hand it to Load.
type Flags struct {
	TemplateDir      string
	BindingsCSV      string
	SkipWait         bool
	AllowProtectedNS bool
	NoPrune          bool
	VerboseLogPrefix bool
}

// Load merges positional args, flags, and environment variables (via viper)
// into a Config, applying the ENVIRONMENT fallback for --template-dir and
// validating the (namespace, context) invariants from spec §4.8 state 1.
//
// It does not contact the cluster; that's the Orchestrator's "Confirming
// cluster" state.
func Load(namespace, context string, f Flags) (*Config, error) {
	viper.SetEnvPrefix("")
	viper.AutomaticEnv()
	_ = viper.BindEnv("revision", "REVISION")
	_ = viper.BindEnv("environment", "ENVIRONMENT")
	_ = viper.BindEnv("kubeconfig", "KUBECONFIG")

	cfg := &Config{
		Namespace:        strings.TrimSpace(namespace),
		Context:          strings.TrimSpace(context),
		TemplateDir:      strings.TrimSpace(f.TemplateDir),
		SkipWait:         f.SkipWait,
		AllowProtectedNS: f.AllowProtectedNS,
		Prune:            !f.NoPrune,
		VerboseLogPrefix: f.VerboseLogPrefix,
		CurrentSHA:       viper.GetString("revision"),
		KubeConfig:       viper.GetString("kubeconfig"),
	}

	if cfg.TemplateDir == "" {
		env := viper.GetString("environment")
		if env != "" {
			cfg.TemplateDir = fmt.Sprintf("config/deploy/%s", env)
		}
	}

	bindings, err := parseBindings(f.BindingsCSV)
	if err != nil {
		return nil, err
	}
	cfg.Bindings = bindings

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func hasTemplateFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yml.erb") {
			return true
		}
	}
	return false
}

func parseBindings(csv string) (map[string]string, error) {
	bindings := map[string]string{}
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return bindings, nil
	}
	for _, pair := range strings.Split(csv, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, errors.Errorf("invalid --bindings entry %q, expected k=v", pair)
		}
		bindings[kv[0]] = kv[1]
	}
	return bindings, nil
}

// validate implements the Validating state's conjunction from spec §4.8
// state 1: kubeconfig exists, current_sha non-empty, template dir exists
// and has matching templates, namespace non-empty and either unprotected or
// explicitly allowed, context non-empty. Protected namespace + prune is
// rejected unconditionally, even with the override.
func (c *Config) validate() error {
	if c.KubeConfig == "" {
		return errors.New("KUBECONFIG is not set")
	}
	if _, err := os.Stat(c.KubeConfig); err != nil {
		return errors.Wrapf(err, "kubeconfig %q does not exist", c.KubeConfig)
	}
	if c.CurrentSHA == "" {
		return errors.New("REVISION is not set")
	}
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Context == "" {
		return errors.New("context is required")
	}
	if c.TemplateDir == "" {
		return errors.New("template directory is required (pass --template-dir or set ENVIRONMENT)")
	}
	info, err := os.Stat(c.TemplateDir)
	if err != nil || !info.IsDir() {
		return errors.Errorf("template directory %q does not exist", c.TemplateDir)
	}
	if !hasTemplateFiles(c.TemplateDir) {
		return errors.Errorf("template directory %q contains no .yml or .yml.erb files", c.TemplateDir)
	}

	protected := kinds.IsProtected(c.Namespace)
	if protected && c.Prune {
		return errors.Errorf("refusing to deploy to protected namespace %q with prune enabled, even with --allow-protected-ns", c.Namespace)
	}
	if protected && !c.AllowProtectedNS {
		return errors.Errorf("refusing to deploy to protected namespace %q without --allow-protected-ns", c.Namespace)
	}
	return nil
}
