package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter MetricType = "counter"
	Timer   MetricType = "timer"
	Gauge   MetricType = "gauge"
)

// Metric represents a single metric with its metadata
type Metric struct {
	Name        string            `json:"name"`
	Type        MetricType        `json:"type"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Description string            `json:"description,omitempty"`
	LastUpdate  time.Time         `json:"last_update"`
}

// TimerMetric stores timing information
type TimerMetric struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Average float64 `json:"avg_ms"`
}

// Registry manages all metrics in memory
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Metric
	timers    map[string]*TimerMetric
	gauges    map[string]*Metric
	startTime time.Time
}

var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Metric),
		timers:    make(map[string]*TimerMetric),
		gauges:    make(map[string]*Metric),
		startTime: time.Now(),
	}
}

// GetRegistry returns the process-wide registry
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// IncrementCounter increments a counter by one
func (r *Registry) IncrementCounter(name string, labels map[string]string, description string) {
	r.AddToCounter(name, 1, labels, description)
}

// AddToCounter adds a value to a counter
func (r *Registry) AddToCounter(name string, value float64, labels map[string]string, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.metricKey(name, labels)
	metric, ok := r.counters[key]
	if !ok {
		metric = &Metric{
			Name:        name,
			Type:        Counter,
			Labels:      copyLabels(labels),
			Description: description,
		}
		r.counters[key] = metric
	}
	metric.Value += value
	metric.LastUpdate = time.Now()
}

// RecordTimer records a duration sample
func (r *Registry) RecordTimer(name string, duration time.Duration, labels map[string]string, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.metricKey(name, labels)
	timer, ok := r.timers[key]
	if !ok {
		timer = &TimerMetric{Min: -1}
		r.timers[key] = timer
	}

	ms := float64(duration.Milliseconds())
	timer.Count++
	timer.Sum += ms
	if timer.Min < 0 || ms < timer.Min {
		timer.Min = ms
	}
	if ms > timer.Max {
		timer.Max = ms
	}
	timer.Average = timer.Sum / float64(timer.Count)
}

// SetGauge sets a gauge to a value
func (r *Registry) SetGauge(name string, value float64, labels map[string]string, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.metricKey(name, labels)
	metric, ok := r.gauges[key]
	if !ok {
		metric = &Metric{
			Name:        name,
			Type:        Gauge,
			Labels:      copyLabels(labels),
			Description: description,
		}
		r.gauges[key] = metric
	}
	metric.Value = value
	metric.LastUpdate = time.Now()
}

// GetAllMetrics returns a snapshot of all metrics
func (r *Registry) GetAllMetrics() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]*Metric, len(r.counters))
	for k, v := range r.counters {
		copied := *v
		counters[k] = &copied
	}

	timers := make(map[string]*TimerMetric, len(r.timers))
	for k, v := range r.timers {
		copied := *v
		timers[k] = &copied
	}

	gauges := make(map[string]*Metric, len(r.gauges))
	for k, v := range r.gauges {
		copied := *v
		gauges[k] = &copied
	}

	return map[string]interface{}{
		"counters":       counters,
		"timers":         timers,
		"gauges":         gauges,
		"uptime_seconds": time.Since(r.startTime).Seconds(),
		"timestamp":      time.Now(),
	}
}

func (r *Registry) metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := name
	for _, k := range keys {
		key += fmt.Sprintf(",%s=%s", k, labels[k])
	}
	return key
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return copied
}

// Package-level helpers using the global registry

func IncrementCounter(name string, labels map[string]string, description string) {
	GetRegistry().IncrementCounter(name, labels, description)
}

func AddToCounter(name string, value float64, labels map[string]string, description string) {
	GetRegistry().AddToCounter(name, value, labels, description)
}

func RecordTimer(name string, duration time.Duration, labels map[string]string, description string) {
	GetRegistry().RecordTimer(name, duration, labels, description)
}

func SetGauge(name string, value float64, labels map[string]string, description string) {
	GetRegistry().SetGauge(name, value, labels, description)
}

func GetAllMetrics() map[string]interface{} {
	return GetRegistry().GetAllMetrics()
}
