// Package metrics declares the Prometheus instrumentation surface for the
// registry, room, and HTTP packages. Kept close to the domain concepts it
// measures rather than centralized behind an interface, matching the
// teacher's metrics package.
//
// Naming convention: namespace_subsystem_name.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "doomdeal",
		Subsystem: "registry",
		Name:      "rooms_active",
		Help:      "Current number of live rooms.",
	})

	ActiveTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "doomdeal",
		Subsystem: "registry",
		Name:      "tokens_active",
		Help:      "Current number of outstanding bearer tokens.",
	})

	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "doomdeal",
		Subsystem: "transport",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections.",
	})

	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "doomdeal",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players currently seated in each room.",
	}, []string{"room_id"})

	RoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doomdeal",
		Subsystem: "room",
		Name:      "rounds_total",
		Help:      "Total rounds completed across all rooms.",
	})

	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doomdeal",
		Subsystem: "room",
		Name:      "turns_total",
		Help:      "Total turn actions processed, by action.",
	}, []string{"action"})

	RevealsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doomdeal",
		Subsystem: "room",
		Name:      "reveals_total",
		Help:      "Total card reveals, by outcome.",
	}, []string{"outcome"})

	DisconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doomdeal",
		Subsystem: "room",
		Name:      "disconnects_total",
		Help:      "Total player disconnects, by phase at time of disconnect.",
	}, []string{"phase"})

	IntentProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "doomdeal",
		Subsystem: "room",
		Name:      "intent_processing_seconds",
		Help:      "Time spent processing one inbound intent in a room's mailbox loop.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
	}, []string{"op"})

	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doomdeal",
		Subsystem: "transport",
		Name:      "events_total",
		Help:      "Total WebSocket frames processed, by direction and status.",
	}, []string{"direction", "status"})

	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doomdeal",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total requests rejected for exceeding a rate limit.",
	}, []string{"endpoint"})
)

func IncConnection() { ActiveWebSocketConnections.Inc() }
func DecConnection() { ActiveWebSocketConnections.Dec() }
