package resource

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// restartThreshold is the container restart count at or above which a pod is
// considered crash-looping and reported as failed rather than left to time
// out on its own.
const restartThreshold = 5

// Pod classifies rollout status from pod phase, container statuses, restart
// counts, and unschedulable conditions (spec §4.3 "Pod (summarized)").
type Pod struct {
	Base

	phase          corev1.PodPhase
	unschedulable  bool
	crashLooping   bool
	imagePullError bool
	allReady       bool
}

func NewPod(b Base) *Pod {
	b.TimeoutD = 5 * time.Minute
	b.Method = MethodApply
	return &Pod{Base: b}
}

func (p *Pod) Sync(ctx context.Context) error {
	result, err := p.Client.Run(ctx, defaultOpts(), "get", "pod", p.ResourceName, "--output=json")
	if err != nil {
		return err
	}
	if !result.Success() {
		p.FoundState = FoundAbsent
		p.StatusText = "not found"
		return nil
	}
	pod, err := decodePod([]byte(result.Stdout))
	if err != nil {
		return err
	}
	return p.ingestJSON(pod)
}

func (p *Pod) ingestJSON(pod *corev1.Pod) error {
	p.FoundState = FoundPresent
	p.phase = pod.Status.Phase
	p.unschedulable = false
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodScheduled && cond.Status == corev1.ConditionFalse && cond.Reason == "Unschedulable" {
			p.unschedulable = true
		}
	}

	p.crashLooping = false
	p.imagePullError = false
	p.allReady = len(pod.Status.ContainerStatuses) > 0
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.RestartCount >= restartThreshold {
			p.crashLooping = true
		}
		if cs.State.Waiting != nil && (cs.State.Waiting.Reason == "ImagePullBackOff" || cs.State.Waiting.Reason == "ErrImagePull") {
			p.imagePullError = true
		}
		if !cs.Ready {
			p.allReady = false
		}
	}

	p.StatusText = fmt.Sprintf("phase=%s", p.phase)
	if p.unschedulable {
		p.StatusText += " (unschedulable)"
	}
	if p.crashLooping {
		p.StatusText += " (crash looping)"
	}
	if p.imagePullError {
		p.StatusText += " (image pull error)"
	}
	return nil
}

func (p *Pod) Exists() bool { return p.FoundState == FoundPresent }

func (p *Pod) DeploySucceeded() bool {
	return p.phase == corev1.PodRunning && p.allReady || p.phase == corev1.PodSucceeded
}

func (p *Pod) DeployFailed() bool {
	return p.phase == corev1.PodFailed || p.unschedulable || p.crashLooping || p.imagePullError
}

func (p *Pod) DeployFinished() bool {
	return p.DeployFailed() || p.DeploySucceeded() || p.DeployTimedOut()
}

func (p *Pod) FetchEvents(ctx context.Context) ([]string, error) {
	return fetchEventsFor(ctx, p.Client, p.ID(), p.StartedAt)
}

func (p *Pod) FetchLogs(ctx context.Context) (map[string]string, error) {
	if p.StartedAt == nil {
		return nil, nil
	}
	since := p.StartedAt.UTC().Format(time.RFC3339)
	result, err := p.Client.Run(ctx, defaultOpts(), "logs", p.ResourceName, "--since-time="+since, "--tail=250")
	if err != nil || !result.Success() {
		return nil, nil
	}
	return map[string]string{p.ID(): result.Stdout}, nil
}

func (p *Pod) DebugMessage(ctx context.Context) string { return debugMessage(ctx, p) }
