package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ConflictRoomUnavailable   = "room_unavailable"
	ConflictRoomStatusChanged = "room_status_changed"
	ConflictStayFinalized     = "stay_finalized"
	ConflictCapacity          = "capacity"
	ConflictDuplicate         = "duplicate"
	ConflictOther             = "other"
)

// FrontDeskMetrics tracks room state churn and rejected operations.
type FrontDeskMetrics struct {
	roomTransitions *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	occupiedRooms   prometheus.Gauge
	registerBlocked prometheus.Gauge
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
}

var (
	frontDeskOnce    sync.Once
	frontDeskMetrics *FrontDeskMetrics
)

// FrontDesk returns the process-wide collectors registered on the default
// registry.
func FrontDesk() *FrontDeskMetrics {
	return FrontDeskWithConfig(Config{})
}

func FrontDeskWithConfig(cfg Config) *FrontDeskMetrics {
	frontDeskOnce.Do(func() {
		frontDeskMetrics = newFrontDeskMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return frontDeskMetrics
}

func newFrontDeskMetrics(registerer prometheus.Registerer, cfg Config) *FrontDeskMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	roomTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_room_transitions_total",
		Help:        "Room status transitions by source and target status.",
		ConstLabels: labels,
	}, []string{"from", "to", "event"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_conflicts_total",
		Help:        "Operations rejected because current state no longer allowed them.",
		ConstLabels: labels,
	}, []string{"operation", "reason"})
	occupiedRooms := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "frontdesk_active_stays",
		Help:        "Active stays observed on the last listing.",
		ConstLabels: labels,
	})
	registerBlocked := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "frontdesk_register_blocking_guests",
		Help:        "Housed guests with incomplete profiles on the last register check.",
		ConstLabels: labels,
	})

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_job_runs_total",
		Help:        "Background job runs by outcome.",
		ConstLabels: labels,
	}, []string{"job", "outcome"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "frontdesk_job_duration_seconds",
		Help:        "Background job run duration.",
		ConstLabels: labels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"job"})

	registerer.MustRegister(roomTransitions, conflicts, occupiedRooms, registerBlocked, jobRuns, jobDuration)

	return &FrontDeskMetrics{
		roomTransitions: roomTransitions,
		conflicts:       conflicts,
		occupiedRooms:   occupiedRooms,
		registerBlocked: registerBlocked,
		jobRuns:         jobRuns,
		jobDuration:     jobDuration,
	}
}

func (m *FrontDeskMetrics) RoomTransition(from, to, event string) {
	if m == nil {
		return
	}
	m.roomTransitions.WithLabelValues(from, to, event).Inc()
}

func (m *FrontDeskMetrics) Conflict(operation, reason string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation, reason).Inc()
}

func (m *FrontDeskMetrics) SetActiveStays(n int) {
	if m == nil {
		return
	}
	m.occupiedRooms.Set(float64(n))
}

func (m *FrontDeskMetrics) SetRegisterBlocking(n int) {
	if m == nil {
		return
	}
	m.registerBlocked.Set(float64(n))
}

// JobRun records one background job run. Outcome is "ok", "error" or "timeout".
func (m *FrontDeskMetrics) JobRun(job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}
