// Package audit records authentication events and ships them to Kafka and
// Elasticsearch off the request path.
package audit

import (
	"context"
	"errors"
	"time"
)

type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventRefreshRotated EventType = "refresh_rotated"
	EventAccessRenewed  EventType = "access_renewed"
	EventReuseDetected  EventType = "refresh_reuse_detected"
	EventLogout         EventType = "logout"
	EventStatusChanged  EventType = "user_status_changed"
)

// Event never carries token strings; JTI identifies the session.
type Event struct {
	Type     EventType `json:"type"`
	UserID   uint      `json:"user_id,omitempty"`
	JTI      string    `json:"jti,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	RemoteIP string    `json:"remote_ip,omitempty"`
	At       time.Time `json:"at"`
}

type Emitter interface {
	Emit(ctx context.Context, e Event)
}

type Sink interface {
	Write(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// MultiSink writes to every sink and joins the failures.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type remoteIPKey struct{}

// WithRemoteIP lets handlers attach the client address to events emitted further down.
func WithRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, remoteIPKey{}, ip)
}

func RemoteIP(ctx context.Context) string {
	ip, _ := ctx.Value(remoteIPKey{}).(string)
	return ip
}
