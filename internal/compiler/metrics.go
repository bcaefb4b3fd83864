package compiler

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsDesc = prometheus.NewDesc(
		"minipack_runs_total", "Completed build runs by outcome.", []string{"result"}, nil)
	unitsDesc = prometheus.NewDesc(
		"minipack_units_total", "Transformed units by outcome.", []string{"result"}, nil)
	emittedDesc = prometheus.NewDesc(
		"minipack_assets_emitted_total", "Assets written to the output filesystem.", nil, nil)
	durationDesc = prometheus.NewDesc(
		"minipack_run_duration_seconds", "Run duration statistics.", []string{"stat"}, nil)
)

// BuildMetrics tracks build performance. It is a prometheus.Collector.
type BuildMetrics struct {
	TotalRuns        int64
	SuccessfulRuns   int64
	FailedRuns       int64
	UnitsTransformed int64
	UnitsFailed      int64
	AssetsEmitted    int64
	LastDuration     time.Duration
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordRun records the outcome of a run
func (bm *BuildMetrics) RecordRun(duration time.Duration, err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalRuns++
	bm.TotalDuration += duration
	bm.LastDuration = duration

	if err != nil {
		bm.FailedRuns++
	} else {
		bm.SuccessfulRuns++
	}

	if bm.TotalRuns > 0 {
		bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalRuns)
	}
}

// RecordUnit records the outcome of one unit chain
func (bm *BuildMetrics) RecordUnit(err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	if err != nil {
		bm.UnitsFailed++
	} else {
		bm.UnitsTransformed++
	}
}

// RecordEmit records written assets
func (bm *BuildMetrics) RecordEmit(count int) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.AssetsEmitted += int64(count)
}

// MetricsSnapshot is a point-in-time copy of BuildMetrics.
type MetricsSnapshot struct {
	TotalRuns        int64
	SuccessfulRuns   int64
	FailedRuns       int64
	UnitsTransformed int64
	UnitsFailed      int64
	AssetsEmitted    int64
	LastDuration     time.Duration
	AverageDuration  time.Duration
	TotalDuration    time.Duration
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() MetricsSnapshot {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	return MetricsSnapshot{
		TotalRuns:        bm.TotalRuns,
		SuccessfulRuns:   bm.SuccessfulRuns,
		FailedRuns:       bm.FailedRuns,
		UnitsTransformed: bm.UnitsTransformed,
		UnitsFailed:      bm.UnitsFailed,
		AssetsEmitted:    bm.AssetsEmitted,
		LastDuration:     bm.LastDuration,
		AverageDuration:  bm.AverageDuration,
		TotalDuration:    bm.TotalDuration,
	}
}

// Describe implements prometheus.Collector.
func (bm *BuildMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- runsDesc
	ch <- unitsDesc
	ch <- emittedDesc
	ch <- durationDesc
}

// Collect implements prometheus.Collector.
func (bm *BuildMetrics) Collect(ch chan<- prometheus.Metric) {
	s := bm.GetSnapshot()

	ch <- prometheus.MustNewConstMetric(runsDesc, prometheus.CounterValue, float64(s.SuccessfulRuns), "ok")
	ch <- prometheus.MustNewConstMetric(runsDesc, prometheus.CounterValue, float64(s.FailedRuns), "failed")
	ch <- prometheus.MustNewConstMetric(unitsDesc, prometheus.CounterValue, float64(s.UnitsTransformed), "transformed")
	ch <- prometheus.MustNewConstMetric(unitsDesc, prometheus.CounterValue, float64(s.UnitsFailed), "failed")
	ch <- prometheus.MustNewConstMetric(emittedDesc, prometheus.CounterValue, float64(s.AssetsEmitted))
	ch <- prometheus.MustNewConstMetric(durationDesc, prometheus.GaugeValue, s.LastDuration.Seconds(), "last")
	ch <- prometheus.MustNewConstMetric(durationDesc, prometheus.GaugeValue, s.AverageDuration.Seconds(), "average")
}
