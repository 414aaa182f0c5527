package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/logfields"
)

// NATSPublisher publishes events on a NATS subject, optionally through
// JetStream.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	timeout time.Duration
	logger  *slog.Logger
}

// Connect dials the configured server.
func Connect(cfg config.NotifyConfig, logger *slog.Logger) (*NATSPublisher, error) {
	if !cfg.Enabled() {
		return nil, errors.ConfigError("notify.nats_url is required").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultNotifyTimeout
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("buildveto"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS connection lost", logfields.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).WithContext("url", cfg.NATSURL).Build()
	}

	p := &NATSPublisher{conn: conn, subject: cfg.Subject, timeout: timeout, logger: logger}
	if cfg.JetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, errors.NotifyError("failed to create JetStream context").WithCause(err).Build()
		}
		p.js = js
	}

	logger.Info("NATS notifications enabled",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", cfg.Subject),
		slog.Bool("jetstream", cfg.JetStream))
	return p, nil
}

// PublishInconsistency publishes ev and waits for the server (or the stream,
// with JetStream) to acknowledge it.
func (p *NATSPublisher) PublishInconsistency(ctx context.Context, ev InconsistencyEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal event").Build()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if p.js != nil {
		_, err = p.js.Publish(ctx, p.subject, data)
	} else if err = p.conn.Publish(p.subject, data); err == nil {
		err = p.conn.FlushWithContext(ctx)
	}
	if err != nil {
		return errors.NotifyError("failed to publish inconsistency event").
			WithCause(err).
			WithContext("subject", p.subject).
			WithContext("project", ev.Project).Build()
	}

	p.logger.Debug("Published inconsistency event",
		logfields.Project(ev.Project),
		logfields.EvaluationID(ev.EvaluationID))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

var _ Publisher = (*NATSPublisher)(nil)
