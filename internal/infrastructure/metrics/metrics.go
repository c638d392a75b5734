package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Party ledger metrics
	PartiesCreated  prometheus.Counter
	EntriesAdmitted *prometheus.CounterVec
	EntriesDeleted  prometheus.Counter
	EntryAmount     prometheus.Histogram

	// Loan metrics
	LoansCreated     *prometheus.CounterVec
	LoansClosed      prometheus.Counter
	PaymentsRecorded *prometheus.CounterVec
	PaymentAmount    prometheus.Histogram
	LoanStatusMoves  *prometheus.CounterVec
	OverdueLoans     prometheus.Gauge
	RemindersQueued  prometheus.Counter
	LoanLockBusy     prometheus.Counter

	// Engine errors by kind
	EngineErrors *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Storage metrics
	AttachmentsStored prometheus.Counter
	AttachmentBytes   prometheus.Counter

	// Scheduler metrics
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Party ledger metrics
		PartiesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khata_parties_created_total",
			Help: "Total number of parties created",
		}),
		EntriesAdmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_entries_admitted_total",
				Help: "Total number of ledger entries admitted by direction",
			},
			[]string{"entry_type"},
		),
		EntriesDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khata_entries_deleted_total",
			Help: "Total number of ledger entries soft-deleted",
		}),
		EntryAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "khata_entry_amount_rupees",
			Help:    "Ledger entry amounts",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		}),

		// Loan metrics
		LoansCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_loans_created_total",
				Help: "Total number of loans created by repayment type",
			},
			[]string{"repayment_type"},
		),
		LoansClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khata_loans_closed_total",
			Help: "Total number of loans closed",
		}),
		PaymentsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_loan_payments_total",
				Help: "Total number of loan payments by type",
			},
			[]string{"payment_type"},
		),
		PaymentAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "khata_loan_payment_amount_rupees",
			Help:    "Loan payment amounts",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		}),
		LoanStatusMoves: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_loan_status_changes_total",
				Help: "Loan status changes made by the overdue sweep",
			},
			[]string{"from", "to"},
		),
		OverdueLoans: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "khata_loans_overdue",
			Help: "Open loans found overdue by the last sweep",
		}),
		RemindersQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khata_loan_reminders_total",
			Help: "Total number of due-date reminders queued",
		}),
		LoanLockBusy: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khata_loan_lock_busy_total",
			Help: "Loan mutations refused because another one was in progress",
		}),

		EngineErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_engine_errors_total",
				Help: "Total number of rejected operations by error kind",
			},
			[]string{"operation", "kind"},
		),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "khata_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Storage metrics
		AttachmentsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khata_attachments_stored_total",
			Help: "Total number of documents uploaded",
		}),
		AttachmentBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khata_attachment_bytes_total",
			Help: "Total bytes of documents uploaded",
		}),

		// Scheduler metrics
		JobRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_job_runs_total",
				Help: "Scheduled job runs by outcome",
			},
			[]string{"job", "status"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "khata_job_duration_seconds",
				Help:    "Scheduled job duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),

		// Outbox metrics
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_outbox_events_published_total",
				Help: "Outbox events handed to the messaging collaborator by outcome",
			},
			[]string{"event_type", "status"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		// Audit metrics
		AuditLogsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khata_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),
	}
}
