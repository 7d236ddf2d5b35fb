// Package kinds holds the resource-kind tags, protected namespace list, and
// prune whitelist constants shared by the resource, deploy, and orchestrator
// packages.
package kinds

// Kind tags recognized by ResourceFactory. Anything else falls through to
// the generic Resource implementation.
const (
	ConfigMap             = "ConfigMap"
	Service               = "Service"
	Deployment            = "Deployment"
	ReplicaSet            = "ReplicaSet"
	Pod                   = "Pod"
	Ingress               = "Ingress"
	PersistentVolumeClaim = "PersistentVolumeClaim"
	PodDisruptionBudget   = "PodDisruptionBudget"
	PodTemplate           = "PodTemplate"

	// Custom resource kinds that use replace instead of apply.
	Cloudsql = "Cloudsql"
	Redis    = "Redis"
	Bugsnag  = "Bugsnag"
)

// PredeploySequence is the fixed, ordered set of kinds fully converged
// before the main deploy phase begins.
var PredeploySequence = []string{Cloudsql, Redis, Bugsnag, ConfigMap, PersistentVolumeClaim, Pod}

// customReplaceKinds use "replace" (not "apply") as their deploy method.
var customReplaceKinds = map[string]bool{
	Cloudsql: true,
	Redis:    true,
	Bugsnag:  true,
}

// IsCustomReplaceKind reports whether kind is a custom resource that
// replaces instead of applies.
func IsCustomReplaceKind(kind string) bool {
	return customReplaceKinds[kind]
}

// ProtectedNamespaces must never be deployed to with prune enabled, and
// require an explicit override flag to deploy to at all.
var ProtectedNamespaces = map[string]bool{
	"default":     true,
	"kube-system": true,
	"kube-public": true,
}

// IsProtected reports whether ns is a protected namespace.
func IsProtected(ns string) bool {
	return ProtectedNamespaces[ns]
}

// PruneWhitelistBase is the version-independent portion of the prune
// whitelist; the HorizontalPodAutoscaler entry is appended separately based
// on the detected server version (see pkg/deploy).
var PruneWhitelistBase = []string{
	"core/v1/ConfigMap",
	"core/v1/Pod",
	"core/v1/Service",
	"batch/v1/Job",
	"extensions/v1beta1/DaemonSet",
	"extensions/v1beta1/Deployment",
	"extensions/v1beta1/Ingress",
	"apps/v1beta1/StatefulSet",
}

// HPAWhitelistEntryLegacy is used for server version 1.5.
const HPAWhitelistEntryLegacy = "extensions/v1beta1/HorizontalPodAutoscaler"

// HPAWhitelistEntryCurrent is used for server version >= 1.6.
const HPAWhitelistEntryCurrent = "autoscaling/v1/HorizontalPodAutoscaler"
