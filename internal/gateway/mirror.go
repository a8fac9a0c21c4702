package gateway

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// MirrorConfig configures the optional NATS event mirror.
type MirrorConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "game.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Mirror publishes the canonical copy of every committed session event to
// NATS, one subject per session. It implements session.EventSink. Spectator
// dashboards and recording consumers subscribe there; the gateway never
// reads the stream back.
type Mirror struct {
	nc     *nats.Conn
	cfg    MirrorConfig
	logger zerolog.Logger
}

func NewMirror(cfg MirrorConfig, logger zerolog.Logger) (*Mirror, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Mirror{nc: nc, cfg: cfg, logger: logger}, nil
}

// Publish mirrors one event frame onto the session's subject.
func (m *Mirror) Publish(sessionID string, data []byte) error {
	subject := fmt.Sprintf("%s.%s", m.cfg.SubjectPrefix, sessionID)
	if err := m.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (m *Mirror) Close() {
	if m.nc != nil {
		m.nc.Close()
	}
}
