// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages durably appended to the store.",
	})

	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_delivered_total",
		Help: "Messages pushed to a live subscription.",
	})

	MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_dropped_total",
		Help: "Pushes skipped because a subscription buffer was full or out of order; recipients catch up via history.",
	})

	AttachmentsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_attachments_stored_total",
		Help: "Attachment blobs accepted and persisted.",
	})

	AttachmentsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_attachments_rejected_total",
		Help: "Attachments rejected by the size/extension policy.",
	})

	OrphanBlobsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_orphan_blobs_swept_total",
		Help: "Unreferenced attachment blobs removed by the sweep job.",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_subscriptions",
		Help: "Currently open live-feed subscriptions.",
	})

	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_users",
		Help: "Users with at least one live subscription.",
	})
)
