package domain

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTokenInvalid
	KindTokenExpired
	KindTokenRevoked
	KindSubjectInactive
	KindUnauthorized
	KindStoreUnavailable
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:          "internal_error",
	KindTokenInvalid:     "token_invalid",
	KindTokenExpired:     "token_expired",
	KindTokenRevoked:     "token_revoked",
	KindSubjectInactive:  "subject_inactive",
	KindUnauthorized:     "unauthorized",
	KindStoreUnavailable: "store_unavailable",
	KindInternal:         "internal_error",
}

// Code is the stable machine-readable name sent to clients.
func (k Kind) Code() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

func (k Kind) String() string { return k.Code() }

func (k Kind) HTTPStatus() int {
	switch k {
	case KindTokenInvalid, KindTokenExpired, KindTokenRevoked, KindSubjectInactive, KindUnauthorized:
		return http.StatusUnauthorized
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a Kind through wrapping. Msg is safe to show to clients; Err is not.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

var (
	ErrTokenInvalid     = &Error{Kind: KindTokenInvalid, Msg: "token is invalid"}
	ErrTokenExpired     = &Error{Kind: KindTokenExpired, Msg: "token has expired"}
	ErrTokenRevoked     = &Error{Kind: KindTokenRevoked, Msg: "token has been revoked"}
	ErrSubjectInactive  = &Error{Kind: KindSubjectInactive, Msg: "account is inactive"}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable, Msg: "storage is unavailable"}
	ErrInternal         = &Error{Kind: KindInternal, Msg: "internal error"}
)

// KindOf returns KindUnknown for errors that never passed through this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return ErrInternal.Msg
}
