package resource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Service fetches endpoint counts and, when its selector uniquely
// identifies one Deployment, requires the endpoint count to match that
// Deployment's desired (spec.replicas) count (spec §4.3 "Service").
type Service struct {
	Base

	endpointCount     int
	matchedDeployment *Deployment
	ambiguousMatch    bool
}

func NewService(b Base) *Service {
	b.TimeoutD = 5 * time.Minute
	b.Method = MethodApply
	return &Service{Base: b}
}

func (s *Service) Sync(ctx context.Context) error {
	result, err := s.Client.Run(ctx, defaultOpts(), "get", "service", s.ResourceName, "--output=json")
	if err != nil {
		return err
	}
	if !result.Success() {
		s.FoundState = FoundAbsent
		s.endpointCount = 0
		s.matchedDeployment = nil
		s.StatusText = "not found"
		return nil
	}
	svc, err := decodeService([]byte(result.Stdout))
	if err != nil {
		return err
	}
	s.FoundState = FoundPresent

	epResult, err := s.Client.Run(ctx, defaultOpts(), "get", "endpoints", s.ResourceName, "--output=jsonpath={.subsets[*].addresses[*].ip}")
	if err != nil {
		return err
	}
	s.endpointCount = 0
	if epResult.Success() {
		s.endpointCount = len(strings.Fields(epResult.Stdout))
	}

	if err := s.findMatchedDeployment(ctx, svc.Spec.Selector); err != nil {
		return err
	}

	s.StatusText = fmt.Sprintf("%d endpoints", s.endpointCount)
	return nil
}

// findMatchedDeployment implements "if the service's selector matches
// exactly one Deployment": it lists Deployments filtered by the service's
// selector and only keeps the match when there's exactly one.
func (s *Service) findMatchedDeployment(ctx context.Context, selector map[string]string) error {
	s.matchedDeployment = nil
	s.ambiguousMatch = false
	if len(selector) == 0 {
		return nil
	}
	result, err := s.Client.Run(ctx, defaultOpts(), "get", "deployments", "--output=json", selectorArg(selector))
	if err != nil {
		return err
	}
	if !result.Success() {
		return nil
	}
	list, err := decodeDeploymentList([]byte(result.Stdout))
	if err != nil {
		return err
	}
	if len(list.Items) != 1 {
		s.ambiguousMatch = len(list.Items) > 1
		return nil
	}
	dep := NewDeployment(Base{
		KindTag:       "Deployment",
		ResourceName:  list.Items[0].Name,
		NamespaceName: s.NamespaceName,
		ContextName:   s.ContextName,
		Client:        s.Client,
	})
	if err := dep.Sync(ctx); err != nil {
		return err
	}
	s.matchedDeployment = dep
	return nil
}

func (s *Service) Exists() bool { return s.FoundState == FoundPresent }

func (s *Service) DeploySucceeded() bool {
	if s.matchedDeployment != nil {
		return int32(s.endpointCount) == s.matchedDeployment.Replicas()
	}
	return s.endpointCount > 0
}

func (s *Service) DeployFailed() bool { return false }

func (s *Service) DeployFinished() bool {
	return s.DeployFailed() || s.DeploySucceeded() || s.DeployTimedOut()
}

func (s *Service) FetchEvents(ctx context.Context) ([]string, error) {
	return fetchEventsFor(ctx, s.Client, s.ID(), s.StartedAt)
}
func (s *Service) FetchLogs(context.Context) (map[string]string, error) { return nil, nil }

// DebugMessage surfaces the "selector probably wrong" hint on timeout
// (spec §4.3 "Timeout message surfaces the selector probably wrong hint").
func (s *Service) DebugMessage(ctx context.Context) string {
	msg := debugMessage(ctx, s)
	if s.DeployTimedOut() && !s.DeploySucceeded() {
		msg += "\nhint: " + strconv.Quote(s.ResourceName) + "'s selector probably doesn't match any ready pods"
	}
	return msg
}
