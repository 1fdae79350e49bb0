package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("otel: nil meter")
	ErrNilSource = errors.New("otel: nil metrics source")
)

// Source is satisfied by *authflow.Engine.
type Source interface {
	MetricsSnapshot() authflow.MetricsSnapshot
	AuditDropped() uint64
}

type Exporter struct {
	registration metric.Registration
}

// New registers all instruments on meter. Close unregisters them.
func New(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	counters := make(map[authflow.MetricID]metric.Int64ObservableCounter, len(internaldefs.Counters))
	observables := make([]metric.Observable, 0, len(internaldefs.Counters)+len(internaldefs.Bounds)+2)

	for _, def := range internaldefs.Counters {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		counters[def.ID] = ins
		observables = append(observables, ins)
	}

	buckets := make([]metric.Int64ObservableGauge, len(internaldefs.BoundSuffixes))
	for i, suffix := range internaldefs.BoundSuffixes {
		name := internaldefs.NotifyLatencyName + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative notifier latency bucket."))
		if err != nil {
			return nil, fmt.Errorf("otel: gauge %s: %w", name, err)
		}
		buckets[i] = ins
		observables = append(observables, ins)
	}
	count, err := meter.Int64ObservableGauge(internaldefs.NotifyLatencyName+"_count",
		metric.WithDescription(internaldefs.NotifyLatencyHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: latency count: %w", err)
	}
	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: audit dropped: %w", err)
	}
	observables = append(observables, count, dropped)

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := source.MetricsSnapshot()
		for id, ins := range counters {
			o.ObserveInt64(ins, int64(snap.Counters[id]))
		}
		cumulative := internaldefs.Cumulative(snap.Histograms[authflow.MetricNotifyLatency])
		for i, ins := range buckets {
			o.ObserveInt64(ins, int64(cumulative[i]))
		}
		o.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
		o.ObserveInt64(dropped, int64(source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}

	return &Exporter{registration: reg}, nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
