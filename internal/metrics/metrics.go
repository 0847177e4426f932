// Package metrics exposes relay and command counters in Prometheus format.
// Values are fed from the event bus rather than by direct calls.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"relaybot/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Subscriber is the part of the event bus the recorder needs.
type Subscriber interface {
	On(eventType string, fn func(domain.Event)) string
}

// Recorder holds the relay metrics in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	relays        *prometheus.CounterVec
	attachments   *prometheus.CounterVec
	sendFailures  *prometheus.CounterVec
	commands      *prometheus.CounterVec
	relayDuration prometheus.Histogram
}

// NewRecorder creates a Recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		relays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_relays_total",
			Help: "Relay attempts by outcome (completed, abandoned).",
		}, []string{"outcome"}),
		attachments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_attachments_total",
			Help: "Relayed attachments by result (staged, fallback).",
		}, []string{"result"}),
		sendFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_send_failures_total",
			Help: "Failed outbound sends by kind (relay, audit).",
		}, []string{"kind"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_commands_total",
			Help: "Administrative commands by name and result.",
		}, []string{"name", "result"}),
		relayDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "relaybot_relay_duration_seconds",
			Help:    "Wall time of completed relay attempts.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Attach subscribes the recorder to relay and command events.
func (r *Recorder) Attach(sub Subscriber) {
	sub.On(domain.EventRelayCompleted, r.observeRelay)
	sub.On(domain.EventRelayAbandoned, r.observeRelay)
	sub.On(domain.EventCommandExecuted, r.observeCommand)
}

func (r *Recorder) observeRelay(e domain.Event) {
	if e.Type == domain.EventRelayAbandoned {
		r.relays.WithLabelValues("abandoned").Inc()
		return
	}
	r.relays.WithLabelValues("completed").Inc()
	r.attachments.WithLabelValues("staged").Add(float64(intField(e, "staged")))
	r.attachments.WithLabelValues("fallback").Add(float64(intField(e, "fallbacks")))
	if _, ok := e.Payload["send_error"]; ok {
		r.sendFailures.WithLabelValues("relay").Inc()
	}
	if _, ok := e.Payload["audit_error"]; ok {
		r.sendFailures.WithLabelValues("audit").Inc()
	}
	if d, ok := e.Payload["duration"].(time.Duration); ok {
		r.relayDuration.Observe(d.Seconds())
	}
}

func (r *Recorder) observeCommand(e domain.Event) {
	name, _ := e.Payload["name"].(string)
	result, _ := e.Payload["result"].(string)
	r.commands.WithLabelValues(name, result).Inc()
}

// Handler serves the registry in exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// EventSource exposes recently emitted events, as *bus.EventBus does.
type EventSource interface {
	Replay(eventType string, since time.Time) []domain.Event
}

type eventView struct {
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventsHandler serves recent events as JSON. Query parameters: type (default
// all) and since, a duration such as 10m (default 15m).
func EventsHandler(src EventSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		window := 15 * time.Minute
		if v := req.URL.Query().Get("since"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				http.Error(w, "invalid since duration", http.StatusBadRequest)
				return
			}
			window = d
		}
		eventType := req.URL.Query().Get("type")
		if eventType == "" {
			eventType = "*"
		}

		events := src.Replay(eventType, time.Now().Add(-window))
		out := make([]eventView, 0, len(events))
		for _, e := range events {
			out = append(out, eventView{Type: e.Type, Source: e.Source, Payload: e.Payload, Timestamp: e.Timestamp})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})
}

// Mux routes /metrics and, when events is non-nil, /debug/events.
func (r *Recorder) Mux(events EventSource) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	if events != nil {
		mux.Handle("/debug/events", EventsHandler(events))
	}
	return mux
}

// Serve listens on addr and serves Mux(events) until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, events EventSource, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: r.Mux(events), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func intField(e domain.Event, key string) int {
	n, _ := e.Payload[key].(int)
	return n
}
