package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecipientCopies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipient_copies_total",
			Help:      "Recipient copies touched by expansion, by outcome (created, merged, promoted)",
		},
		[]string{"outcome"},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages that completed the send transition",
		},
	)

	SendRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_rejections_total",
			Help:      "Send attempts rejected before transmission, by reason",
		},
		[]string{"reason"},
	)

	EmailsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Outbound emails handed to the transport, by result (ok, failed)",
		},
		[]string{"result"},
	)

	FlushRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_flush_messages_total",
			Help:      "Messages processed by the outbox flush, by result (sent, failed)",
		},
		[]string{"result"},
	)

	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_flush_duration_seconds",
			Help:      "Wall time of one outbox flush",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)
