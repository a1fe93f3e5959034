package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultSubjectPrefix is prepended to every event kind.
const DefaultSubjectPrefix = "nsulife.session"

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes events as JSON on <prefix>.<kind>.
type NATSPublisher struct {
	conn   conn
	nc     *nats.Conn
	prefix string
	log    zerolog.Logger
	now    func() time.Time
}

// ConnectNATS dials url and returns a publisher on the default prefix.
func ConnectNATS(url, name string, log zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := NewNATSPublisher(nc, DefaultSubjectPrefix, log)
	p.nc = nc
	return p, nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(c conn, prefix string, log zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, prefix: prefix, log: log, now: time.Now}
}

// Subject is where events of kind k are published.
func (p *NATSPublisher) Subject(k Kind) string {
	return p.prefix + "." + string(k)
}

// Publish never fails the caller; errors are logged.
func (p *NATSPublisher) Publish(e Event) {
	if e.At.IsZero() {
		e.At = p.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.log.Error().Err(err).Str("kind", string(e.Kind)).Msg("encode event")
		return
	}
	if err := p.conn.Publish(p.Subject(e.Kind), data); err != nil {
		p.log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("publish event")
	}
}

// Healthy reports an error while the owned connection is down.
func (p *NATSPublisher) Healthy() error {
	if p.nc != nil && !p.nc.IsConnected() {
		return fmt.Errorf("nats %s", p.nc.Status())
	}
	return nil
}

// Close flushes pending events when the publisher owns its connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
