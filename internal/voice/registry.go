package voice

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlolabs/parlo-core/internal/bus"
	"github.com/parlolabs/parlo-core/internal/protocol"
)

// Registry tracks the synthesis voices currently offered by the
// playback engine. The engine publishes a full snapshot whenever its
// voice list changes, which can happen well after startup; selection
// must always read the latest snapshot.
type Registry struct {
	log *slog.Logger
	bus *bus.Client
	sub *nats.Subscription

	mu        sync.RWMutex
	voices    []Voice
	updatedAt time.Time

	meter      metric.Meter
	voiceGauge metric.Int64ObservableGauge
}

func NewRegistry(busClient *bus.Client, log *slog.Logger) (*Registry, error) {
	r := &Registry{
		log:   log.With(slog.String("component", "voice-registry")),
		bus:   busClient,
		meter: otel.Meter("github.com/parlolabs/parlo-core/voice"),
	}

	if err := r.initMetrics(); err != nil {
		r.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}

	sub, err := busClient.Conn().Subscribe(protocol.SubjectVoiceSnapshot, r.handleSnapshot)
	if err != nil {
		return nil, err
	}
	r.sub = sub
	return r, nil
}

func (r *Registry) initMetrics() error {
	gauge, err := r.meter.Int64ObservableGauge("parlo.voices.available",
		metric.WithDescription("Synthesis voices currently known to the runtime"))
	if err != nil {
		return err
	}
	r.voiceGauge = gauge
	_, err = r.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		r.mu.RLock()
		n := len(r.voices)
		r.mu.RUnlock()
		o.ObserveInt64(gauge, int64(n))
		return nil
	}, gauge)
	return err
}

func (r *Registry) Close() {
	if r.sub != nil {
		_ = r.sub.Drain()
	}
}

func (r *Registry) handleSnapshot(msg *nats.Msg) {
	var snap protocol.VoiceSnapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		r.log.Warn("invalid voice snapshot", slog.String("error", err.Error()))
		return
	}
	voices := make([]Voice, len(snap.Voices))
	for i, v := range snap.Voices {
		voices[i] = Voice{ID: v.ID, Lang: v.Lang, Name: v.Name}
	}
	r.mu.Lock()
	r.voices = voices
	r.updatedAt = snap.Timestamp
	r.mu.Unlock()
	r.log.Debug("voice snapshot updated", slog.Int("voices", len(snap.Voices)))
}

// Snapshot returns a copy of the current voice set in publish order.
func (r *Registry) Snapshot() []Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Voice(nil), r.voices...)
}

// SetSnapshot replaces the voice set directly, bypassing the bus.
func (r *Registry) SetSnapshot(voices []Voice) {
	r.mu.Lock()
	r.voices = append([]Voice(nil), voices...)
	r.updatedAt = time.Now().UTC()
	r.mu.Unlock()
}
