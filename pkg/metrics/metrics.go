// Package metrics exposes counters for imports, requisition edits, exports
// and mirror traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultDropped = "dropped"
)

var (
	Imports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "requisition",
		Name:      "imports_total",
		Help:      "Master table uploads by result.",
	}, []string{"result"})

	MasterRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "requisition",
		Name:      "master_records",
		Help:      "Master records currently loaded.",
	})

	Lines = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "requisition",
		Name:      "lines",
		Help:      "Requisition lines currently held.",
	})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "requisition",
		Name:      "mutations_total",
		Help:      "State mutations by operation.",
	}, []string{"op"})

	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "requisition",
		Name:      "exports_total",
		Help:      "Workbook exports by result.",
	}, []string{"result"})

	MirrorPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "requisition",
		Name:      "mirror_pushes_total",
		Help:      "Remote mirror pushes by trigger and result.",
	}, []string{"trigger", "result"})
)
