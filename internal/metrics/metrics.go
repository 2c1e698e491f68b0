// Package metrics provides Prometheus metrics for camera workers, the
// classifier, clip delivery and video jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vigil"

var (
	ActiveCameras = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "camera",
		Name:      "active",
		Help:      "Number of running camera workers",
	})

	FramesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "camera",
		Name:      "frames_read_total",
		Help:      "Frames read from camera sources",
	}, []string{"camera_id"})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "camera",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped because the pending queue was full",
	}, []string{"camera_id"})

	Episodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "detection",
		Name:      "episodes_total",
		Help:      "Violence episodes opened",
	}, []string{"camera_id"})

	ClassifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "duration_seconds",
		Help:      "Classifier call latency",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"outcome"})

	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "labels_total",
		Help:      "Classifier results by label",
	}, []string{"label"})

	ClassifyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "errors_total",
		Help:      "Failed classifier calls",
	})

	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "errors_total",
		Help:      "Failed calls to storage collaborators",
	}, []string{"operation"})

	ClipsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "clip",
		Name:      "delivered_total",
		Help:      "Clip delivery outcomes",
	}, []string{"outcome"})

	VideoJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "video",
		Name:      "jobs_total",
		Help:      "Finished video analysis jobs",
	}, []string{"status"})

	PoolQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "queue_depth",
		Help:      "Tasks waiting in the worker pool queue",
	})

	PoolRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "rejected_total",
		Help:      "Tasks rejected because the queue was full",
	})
)

// DeleteCamera removes per-camera series once a worker exits.
func DeleteCamera(cameraID string) {
	FramesRead.DeleteLabelValues(cameraID)
	FramesDropped.DeleteLabelValues(cameraID)
	Episodes.DeleteLabelValues(cameraID)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
