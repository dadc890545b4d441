// Package metrics records workflow instrumentation with OpenTelemetry.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"seo-agents/backend/internal/compliance"
	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/graph"
	"seo-agents/backend/pkg/models"
)

const (
	namespace = "seo_agents"

	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics holds the workflow instruments.
type Metrics struct {
	nodesTotal    metric.Int64Counter
	nodeDuration  metric.Float64Histogram
	runsTotal     metric.Int64Counter
	verdictsTotal metric.Int64Counter
	findingsTotal metric.Int64Counter
}

// New registers the instruments on meter.
func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.nodesTotal, "nodes_total", "Workflow node executions by outcome"},
		{&m.runsTotal, "runs_total", "Workflow runs by terminal status"},
		{&m.verdictsTotal, "compliance_verdicts_total", "Compliance verdicts by status"},
		{&m.findingsTotal, "compliance_findings_total", "Compliance findings by source and severity"},
	}
	for _, def := range counters {
		c, err := meter.Int64Counter(name(def.name), metric.WithDescription(def.description), metric.WithUnit("1"))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", def.name, err)
		}
		*def.target = c
	}
	h, err := meter.Float64Histogram(
		name("node_duration_seconds"),
		metric.WithDescription("Workflow node duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create node duration histogram: %w", err)
	}
	m.nodeDuration = h
	return m, nil
}

func name(n string) string {
	return namespace + "_" + n
}

// StepHook records every node transition.
func (m *Metrics) StepHook() graph.StepHook {
	return func(ctx context.Context, s graph.Step) {
		outcome := outcomeSuccess
		attrs := []attribute.KeyValue{
			attribute.String("workflow", s.Workflow),
			attribute.String("node", string(s.Node)),
		}
		if s.Err != nil {
			outcome = outcomeError
			attrs = append(attrs, attribute.String("code", codeOf(s.Err)))
		}
		attrs = append(attrs, attribute.String("outcome", outcome))
		m.nodesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
		m.nodeDuration.Record(ctx, s.Duration.Seconds(), metric.WithAttributes(
			attribute.String("workflow", s.Workflow),
			attribute.String("node", string(s.Node)),
		))
	}
}

// ComplianceObserver records every verdict.
func (m *Metrics) ComplianceObserver() compliance.Observer {
	return func(ctx context.Context, vertical models.Vertical, v models.Verdict) {
		m.verdictsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("vertical", string(vertical)),
			attribute.String("status", string(v.Status)),
		))
		for _, f := range v.Findings {
			m.findingsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("source", string(f.Source)),
				attribute.String("severity", string(f.Severity)),
			))
		}
	}
}

// RecordRun counts a run that reached a terminal status.
func (m *Metrics) RecordRun(ctx context.Context, summary models.RunSummary) {
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", string(summary.Agent)),
		attribute.String("status", string(summary.Status)),
	))
}

func codeOf(err error) string {
	if c := apperrors.Code(err); c != "" {
		return c
	}
	return "unknown"
}
