// Package metrics records per-job measurements and emits them as a single
// structured log event, so one line describes how a compression job went.
package metrics

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitPercent      = "Percent"
	UnitNone         = "None"
)

type metricValue struct {
	value float64
	unit  string
}

// Recorder accumulates dimensions, metrics, and properties for a single flush.
// It is NOT safe for concurrent use from multiple goroutines; create one per operation.
type Recorder struct {
	namespace  string
	logger     zerolog.Logger
	started    time.Time
	dimensions map[string]string
	metrics    map[string]metricValue
	properties map[string]any
}

// New creates a Recorder that flushes to the global logger.
func New(namespace string) *Recorder {
	return NewWithLogger(namespace, log.Logger)
}

// NewWithLogger creates a Recorder that flushes to logger.
func NewWithLogger(namespace string, logger zerolog.Logger) *Recorder {
	return &Recorder{
		namespace:  namespace,
		logger:     logger,
		started:    time.Now(),
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricValue),
		properties: make(map[string]any),
	}
}

// Dimension adds a dimension key-value pair, e.g. the compression mode.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a unit.
// Use the Unit* constants.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricValue{value: value, unit: unit}
	return r
}

// Count is a convenience for recording a count metric (value = 1).
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Elapsed records the time since the Recorder was created in milliseconds.
func (r *Recorder) Elapsed(name string) *Recorder {
	return r.Metric(name, float64(time.Since(r.started).Milliseconds()), UnitMilliseconds)
}

// Property adds a non-metric field.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

// Flush emits one INFO event carrying everything recorded.
// After flushing, the Recorder should not be reused.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return // Nothing to emit
	}

	evt := r.logger.Info().Str("namespace", r.namespace)

	if len(r.dimensions) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(r.dimensions) {
			d = d.Str(k, r.dimensions[k])
		}
		evt = evt.Dict("dimensions", d)
	}

	values := zerolog.Dict()
	units := zerolog.Dict()
	for _, k := range sortedKeys(r.metrics) {
		values = values.Float64(k, r.metrics[k].value)
		units = units.Str(k, r.metrics[k].unit)
	}
	evt = evt.Dict("metrics", values).Dict("units", units)

	if len(r.properties) > 0 {
		evt = evt.Fields(r.properties)
	}

	evt.Msg("Job metrics")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
