package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RentalMetrics tracks ledger operations and fund movements of the rental
// components.
type RentalMetrics struct {
	operations      *prometheus.CounterVec
	operationTime   *prometheus.HistogramVec
	rollbacks       *prometheus.CounterVec
	escrowReleased  *prometheus.CounterVec
	escrowDeposited prometheus.Counter
	rentPaid        prometheus.Counter
	rpcRequests     *prometheus.CounterVec
}

var (
	rentalOnce     sync.Once
	rentalRegistry *RentalMetrics
)

// Rental returns the process-wide metrics registry, registering the
// collectors with the default Prometheus registerer on first use.
func Rental() *RentalMetrics {
	rentalOnce.Do(func() {
		rentalRegistry = &RentalMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rentchain_ledger_operations_total",
				Help: "Count of ledger operations by name and result.",
			}, []string{"operation", "result"}),
			operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "rentchain_ledger_operation_seconds",
				Help:    "Latency of ledger operations.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			}, []string{"operation"}),
			rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rentchain_ledger_rollbacks_total",
				Help: "Operations whose buffered writes were discarded.",
			}, []string{"operation"}),
			escrowReleased: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rentchain_escrow_released_units_total",
				Help: "Token units released from escrow by recipient role.",
			}, []string{"recipient"}),
			escrowDeposited: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "rentchain_escrow_deposited_units_total",
				Help: "Token units deposited into escrow.",
			}),
			rentPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "rentchain_rent_paid_units_total",
				Help: "Token units paid as rent.",
			}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rentchain_rpc_requests_total",
				Help: "JSON-RPC requests by method and outcome code.",
			}, []string{"method", "code"}),
		}
		prometheus.MustRegister(
			rentalRegistry.operations,
			rentalRegistry.operationTime,
			rentalRegistry.rollbacks,
			rentalRegistry.escrowReleased,
			rentalRegistry.escrowDeposited,
			rentalRegistry.rentPaid,
			rentalRegistry.rpcRequests,
		)
	})
	return rentalRegistry
}

func (m *RentalMetrics) ObserveOperation(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
		m.rollbacks.WithLabelValues(op).Inc()
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.operationTime.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *RentalMetrics) AddEscrowReleased(recipient string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	if recipient == "" {
		recipient = "unknown"
	}
	m.escrowReleased.WithLabelValues(recipient).Add(float64(amount))
}

func (m *RentalMetrics) AddEscrowDeposited(amount uint64) {
	if m == nil {
		return
	}
	m.escrowDeposited.Add(float64(amount))
}

func (m *RentalMetrics) AddRentPaid(amount uint64) {
	if m == nil {
		return
	}
	m.rentPaid.Add(float64(amount))
}

func (m *RentalMetrics) ObserveRPC(method string, code int) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.rpcRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
