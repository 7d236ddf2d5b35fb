package resource

import (
	"encoding/json"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// decodeDeployment unmarshals "get deployment <name> --output=json" stdout
// into a typed appsv1.Deployment, the same wire shape kubectl itself emits.
func decodeDeployment(raw []byte) (*appsv1.Deployment, error) {
	var d appsv1.Deployment
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeReplicaSet(raw []byte) (*appsv1.ReplicaSet, error) {
	var rs appsv1.ReplicaSet
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

func decodeReplicaSetList(raw []byte) (*appsv1.ReplicaSetList, error) {
	var l appsv1.ReplicaSetList
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func decodePod(raw []byte) (*corev1.Pod, error) {
	var p corev1.Pod
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodePodList(raw []byte) (*corev1.PodList, error) {
	var l corev1.PodList
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func decodeService(raw []byte) (*corev1.Service, error) {
	var s corev1.Service
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeDeploymentList(raw []byte) (*appsv1.DeploymentList, error) {
	var l appsv1.DeploymentList
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// selectorArg turns a matchLabels map into the "--selector=k=v,k2=v2"
// argument understood by the cluster CLI.
func selectorArg(matchLabels map[string]string) string {
	return "--selector=" + labels.Set(matchLabels).AsSelector().String()
}

// hasOwner reports whether owners contains a reference to uid.
func hasOwner(owners []metav1.OwnerReference, uid string) bool {
	for _, o := range owners {
		if string(o.UID) == uid {
			return true
		}
	}
	return false
}
