package deploy

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/cfn"
	"github.com/pose/aws-cdk/internal/models"
)

// Monitor streams a stack's resource events to a writer while an operation
// is in flight. It runs as its own goroutine with cooperative shutdown and
// never influences the operation it observes: fetch errors are swallowed
// and a nil monitor is a valid no-op (quiet mode).
//
// Start/Stop are idempotent. Stop performs a final fetch so events that
// landed between the last tick and the terminal status still render.
type Monitor struct {
	mu         sync.Mutex
	client     api.CloudFormation
	stack      *models.Stack
	deployName string
	out        io.Writer
	interval   time.Duration
	total      int // expected resource changes; 0 when unknown (destroy)
	done       int
	since      time.Time
	seen       map[string]bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	active     bool
}

// NewMonitor creates a monitor for the named stack. The stack descriptor is
// optional and only used to label events with the construct path that
// produced them; total is the expected number of resource changes, or 0
// when unknown.
func NewMonitor(client api.CloudFormation, stack *models.Stack, deployName string, out io.Writer, interval time.Duration, total int) *Monitor {
	return &Monitor{
		client:     client,
		stack:      stack,
		deployName: deployName,
		out:        out,
		interval:   interval,
		total:      total,
		since:      time.Now(),
		seen:       make(map[string]bool),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the event loop. Repeated calls are ignored.
func (m *Monitor) Start(ctx context.Context) {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return
	}
	m.active = true
	stopCh := m.stopCh
	doneCh := m.doneCh
	interval := m.interval
	m.mu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				m.fetch(ctx)
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.fetch(ctx)
			}
		}
	}()
}

// Stop shuts the event loop down and waits for it to exit. Repeated calls
// are ignored, so callers can defer a Stop and also stop explicitly once
// the terminal status is observed.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.active = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()
	<-done
}

// fetch renders events that arrived since the last fetch. Errors are
// dropped: the monitor is observability only, and transient describe
// failures while a stack deletes are routine.
func (m *Monitor) fetch(ctx context.Context) {
	events, err := cfn.RecentEvents(ctx, m.client, m.deployName, m.since)
	if err != nil || len(events) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		id := aws.ToString(ev.EventId)
		if m.seen[id] {
			continue
		}
		m.seen[id] = true
		if ev.Timestamp.After(m.since) {
			m.since = *ev.Timestamp
		}
		m.render(ev)
	}
}

// render prints one event row, annotated with done/total progress and the
// construct path behind the logical ID when the metadata knows it.
func (m *Monitor) render(ev cfntypes.StackEvent) {
	status := string(ev.ResourceStatus)
	if resourceDone(ev) {
		m.done++
	}
	progress := fmt.Sprintf("%d", m.done)
	if m.total > 0 {
		progress = fmt.Sprintf("%d/%d", m.done, m.total)
	}
	label := aws.ToString(ev.LogicalResourceId)
	if m.stack != nil {
		if path := m.stack.PathForLogicalID(label); path != "" {
			label = fmt.Sprintf("%s (%s)", label, path)
		}
	}
	line := fmt.Sprintf("%s | %6s | %-20s | %-30s | %s",
		ev.Timestamp.Format("15:04:05"), progress, status, aws.ToString(ev.ResourceType), label)
	if reason := aws.ToString(ev.ResourceStatusReason); reason != "" {
		line += fmt.Sprintf(" %s", reason)
	}
	fmt.Fprintln(m.out, line)
}

// resourceDone reports an event that finishes one resource change: a
// terminal status on anything but the stack container itself.
func resourceDone(ev cfntypes.StackEvent) bool {
	if aws.ToString(ev.ResourceType) == "AWS::CloudFormation::Stack" {
		return false
	}
	switch ev.ResourceStatus {
	case cfntypes.ResourceStatusCreateComplete,
		cfntypes.ResourceStatusUpdateComplete,
		cfntypes.ResourceStatusDeleteComplete,
		cfntypes.ResourceStatusCreateFailed,
		cfntypes.ResourceStatusUpdateFailed,
		cfntypes.ResourceStatusDeleteFailed:
		return true
	}
	return false
}
