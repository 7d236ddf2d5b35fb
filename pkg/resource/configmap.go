package resource

import (
	"context"
	"time"
)

// ConfigMap has no rollout to monitor beyond existence (spec §4.3).
type ConfigMap struct {
	Base
}

func NewConfigMap(b Base) *ConfigMap {
	b.TimeoutD = 30 * time.Second
	b.Method = MethodApply
	return &ConfigMap{Base: b}
}

func (c *ConfigMap) Sync(ctx context.Context) error {
	result, err := c.Client.Run(ctx, defaultOpts(), "get", c.KindTag, c.ResourceName)
	if err != nil {
		return err
	}
	if result.Success() {
		c.FoundState = FoundPresent
		c.StatusText = "exists"
	} else {
		c.FoundState = FoundAbsent
		c.StatusText = "not found"
	}
	return nil
}

func (c *ConfigMap) Exists() bool         { return c.FoundState == FoundPresent }
func (c *ConfigMap) DeploySucceeded() bool { return c.Exists() }
func (c *ConfigMap) DeployFailed() bool    { return false }

func (c *ConfigMap) FetchEvents(ctx context.Context) ([]string, error) {
	return fetchEventsFor(ctx, c.Client, c.ID(), c.StartedAt)
}
func (c *ConfigMap) FetchLogs(context.Context) (map[string]string, error) { return nil, nil }
func (c *ConfigMap) DebugMessage(ctx context.Context) string              { return debugMessage(ctx, c) }
func (c *ConfigMap) DeployFinished() bool {
	return c.DeployFailed() || c.DeploySucceeded() || c.DeployTimedOut()
}
