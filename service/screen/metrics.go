package screen

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 页面关闭原因
const (
	ReasonClosed    = "closed"
	ReasonSignedOut = "signed_out"
	ReasonIdle      = "idle"
	ReasonShutdown  = "shutdown"
)

var (
	screensOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kath_hub_profile_screens_open",
			Help: "Number of profile edit screens currently open",
		},
	)

	screensClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kath_hub_profile_screens_closed_total",
			Help: "Total number of profile edit screens closed, by reason",
		},
		[]string{"reason"},
	)

	screenOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kath_hub_profile_screen_operations_total",
			Help: "Total number of operations dispatched to profile edit screens",
		},
		[]string{"operation", "status"},
	)
)

// ObserveOperation 记录一次页面操作的结果，err 为 nil 时计为 ok。
func ObserveOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	screenOperations.WithLabelValues(operation, status).Inc()
}
