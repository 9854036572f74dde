// Package metrics holds the prometheus collectors for the game server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session metrics
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chess_sessions_live",
		Help: "The number of game sessions held in memory.",
	})
	Hydrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_session_hydrations_total",
		Help: "The total number of sessions loaded from the store.",
	})
	MovesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_moves_accepted_total",
		Help: "The total number of moves applied to a game.",
	})
	OperationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chess_operations_rejected_total",
		Help: "The total number of session operations rejected, by error code.",
	}, []string{"code"})
	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chess_games_finished_total",
		Help: "The total number of games that reached a terminal status, by reason.",
	}, []string{"reason"})
	CommitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_commit_failures_total",
		Help: "The total number of mutations rolled back because the store write failed.",
	})
	TimersFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_clock_timers_fired_total",
		Help: "The total number of flag-fall timers that fired.",
	})

	// Broadcast metrics
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chess_room_subscribers",
		Help: "The current number of room subscriptions.",
	})
	SlowSubscribers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_slow_subscribers_evicted_total",
		Help: "The total number of subscribers dropped for not keeping up.",
	})

	// WebSocket metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_messages_received_total",
		Help: "The total number of messages received from clients.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
