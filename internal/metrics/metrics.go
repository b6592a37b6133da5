package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OnlineChannels = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_channels",
		Help: "Current registered delivery channels.",
	})

	EventsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_events_delivered_total",
		Help: "Total events queued onto client channels.",
	})
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_events_dropped_total",
		Help: "Total events dropped because a client channel was full.",
	})

	MessagesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_created_total",
		Help: "Total messages persisted.",
	})
)

func Register() {
	prometheus.MustRegister(
		OnlineChannels,
		EventsDelivered, EventsDropped,
		MessagesCreated,
	)
}
