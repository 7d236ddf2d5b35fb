package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
	"deploy.dev/kubernetes-deploy/pkg/config"
	"deploy.dev/kubernetes-deploy/pkg/orchestrator"
	"deploy.dev/kubernetes-deploy/pkg/render"
	"deploy.dev/kubernetes-deploy/pkg/secrets"
)

var deployFlags config.Flags

var rootCmd = &cobra.Command{
	Use:   "kubernetes-deploy NAMESPACE CONTEXT",
	Short: "Deploy Kubernetes resources and verify their rollout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0], args[1])
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&deployFlags.TemplateDir, "template-dir", "", "directory of rendered manifest templates (default: config/deploy/$ENVIRONMENT)")
	pf.StringVar(&deployFlags.BindingsCSV, "bindings", "", "comma-separated key=value pairs available to templates")
	pf.BoolVar(&deployFlags.SkipWait, "skip-wait", false, "deploy without watching for rollout completion")
	pf.BoolVar(&deployFlags.AllowProtectedNS, "allow-protected-ns", false, "allow deploying to a protected namespace (default, kube-system, kube-public)")
	pf.BoolVar(&deployFlags.NoPrune, "no-prune", false, "disable pruning of resources no longer present in the template directory")
	pf.BoolVar(&deployFlags.VerboseLogPrefix, "verbose-log-prefix", false, "prefix log lines with [namespace/context]")

	// Fold glog's flags (-v, --logtostderr, ...) onto rootCmd's own flag set
	// so cobra actually parses them; pflag.CommandLine is never consulted by
	// rootCmd.Execute().
	pf.AddGoFlagSet(flag.CommandLine)
}

func run(namespace, clusterContext string) error {
	cfg, err := config.Load(namespace, clusterContext, deployFlags)
	if err != nil {
		return err
	}

	client := cluster.New("kubectl", cfg.Namespace, cfg.Context)
	orch := orchestrator.New(cfg, client, render.BindingsRenderer, secrets.NoOp{})

	if err := orch.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Summary())
		return fmt.Errorf("deploy failed")
	}
	fmt.Println("Deploy succeeded")
	return nil
}

func main() {
	// glog gripes if you don't parse flags before making any logging statements.
	flag.CommandLine.Parse([]string{}) //nolint:errcheck
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
