package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	admsession "github.com/imoveisdeluxo/admsession"
	"github.com/imoveisdeluxo/admsession/metrics/export/internaldefs"
	"github.com/imoveisdeluxo/admsession/session"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() admsession.MetricsSnapshot
	AuditDropped() uint64
	Status() session.Status
}

var sessionStatuses = []session.Status{
	session.StatusLoading,
	session.StatusAuthenticated,
	session.StatusUnauthenticated,
}

// OTelExporter keeps the callback registration alive until Close.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	counters     map[admsession.MetricID]metric.Int64ObservableCounter
	buckets      map[admsession.MetricID]metric.Int64ObservableGauge
	statusSets   []metric.ObserveOption
	status       metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter observes console.
func NewOTelExporter(meter metric.Meter, console *admsession.Console) (*OTelExporter, error) {
	if console == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, console)
}

// NewOTelExporterFromSource registers one callback that reads source on
// every collection. Latency buckets are a single gauge keyed by the "le"
// attribute; the session status gauge is 1 for the current status only.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		counters: make(map[admsession.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		buckets:  make(map[admsession.MetricID]metric.Int64ObservableGauge, len(internaldefs.HistogramDefs)),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		name := def.Name + "_bucket"
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("gauge %s: %w", name, err)
		}
		e.buckets[def.ID] = ins
		observables = append(observables, ins)
	}

	status, err := meter.Int64ObservableGauge("admsession_session_status",
		metric.WithDescription("1 for the console's current session status."))
	if err != nil {
		return nil, fmt.Errorf("gauge admsession_session_status: %w", err)
	}
	e.status = status
	for _, s := range sessionStatuses {
		e.statusSets = append(e.statusSets, metric.WithAttributes(attribute.String("status", s.String())))
	}
	observables = append(observables, status)

	e.auditDropped, err = meter.Int64ObservableCounter("admsession_audit_dropped_total",
		metric.WithDescription("Audit events dropped because the dispatcher queue was full."))
	if err != nil {
		return nil, fmt.Errorf("counter admsession_audit_dropped_total: %w", err)
	}
	observables = append(observables, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for id, ins := range e.counters {
		o.ObserveInt64(ins, int64(snap.Counters[id]))
	}
	for id, ins := range e.buckets {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
		for i, le := range internaldefs.HistogramBounds {
			o.ObserveInt64(ins, int64(cumulative[i]), metric.WithAttributes(attribute.String("le", le)))
		}
	}
	current := e.source.Status()
	for i, s := range sessionStatuses {
		var v int64
		if s == current {
			v = 1
		}
		o.ObserveInt64(e.status, v, e.statusSets[i])
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
