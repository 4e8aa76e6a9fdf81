// Package events publishes per-call audit events. The sink is append-only
// and fire-and-forget: a slow or absent broker never back-pressures calls.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fystack/solana-gateway/pkg/logger"
	"github.com/fystack/solana-gateway/pkg/retry"
)

const DefaultSubjectPrefix = "solgateway"

// CallEvent records the outcome of one orchestrated call.
type CallEvent struct {
	Method        string   `json:"method"`
	Sources       []string `json:"sources"`
	Consistent    bool     `json:"consistent"`
	ErrorKind     string   `json:"error_kind,omitempty"`
	CyclesCharged uint64   `json:"cycles_charged"`
	Timestamp     int64    `json:"timestamp"`
}

type Emitter interface {
	EmitCall(ev CallEvent)
	Close()
}

// NoopEmitter drops events; used when no broker is configured.
type NoopEmitter struct{}

func (NoopEmitter) EmitCall(CallEvent) {}
func (NoopEmitter) Close()             {}

type natsEmitter struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATSEmitter connects to the broker, retrying transient startup
// failures.
func NewNATSEmitter(url, subjectPrefix string) (Emitter, error) {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}

	var conn *nats.Conn
	err := retry.Exponential(func() error {
		var connErr error
		conn, connErr = nats.Connect(url)
		return connErr
	}, retry.ExponentialConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  15 * time.Second,
		OnRetry: func(err error, next time.Duration) {
			logger.Warn("NATS connect failed, retrying", "err", err, "next", next)
		},
	})
	if err != nil {
		return nil, err
	}
	return &natsEmitter{conn: conn, subjectPrefix: subjectPrefix}, nil
}

func (e *natsEmitter) EmitCall(ev CallEvent) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UTC().Unix()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("marshal call event", "err", err)
		return
	}
	if err := e.conn.Publish(e.subjectPrefix+".call", data); err != nil {
		logger.Warn("publish call event", "err", err)
	}
}

func (e *natsEmitter) Close() {
	e.conn.Close()
}
