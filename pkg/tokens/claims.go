package tokens

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	errWrongType     = errors.New("unexpected token type")
	errBadSubject    = errors.New("subject is not a positive integer")
	errMissingJTI    = errors.New("refresh token has no jti")
	errUnexpectedJTI = errors.New("access token carries a jti")
	errUnknownKind   = errors.New("unknown token kind")
)

// Claims is implemented only by AccessClaims and RefreshClaims.
type Claims interface {
	jwt.Claims
	Kind() Kind
	UserID() uint
	sealed()
}

type AccessClaims struct {
	Type Kind `json:"type"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Type Kind `json:"type"`
	jwt.RegisteredClaims
}

func (AccessClaims) Kind() Kind  { return KindAccess }
func (RefreshClaims) Kind() Kind { return KindRefresh }

func (AccessClaims) sealed()  {}
func (RefreshClaims) sealed() {}

func (c AccessClaims) UserID() uint  { id, _ := parseSubject(c.Subject); return id }
func (c RefreshClaims) UserID() uint { id, _ := parseSubject(c.Subject); return id }

// Validate is called by the jwt parser after the registered claims pass.
func (c AccessClaims) Validate() error {
	if c.Type != KindAccess {
		return errWrongType
	}
	if c.ID != "" {
		return errUnexpectedJTI
	}
	_, err := parseSubject(c.Subject)
	return err
}

func (c RefreshClaims) Validate() error {
	if c.Type != KindRefresh {
		return errWrongType
	}
	if c.ID == "" {
		return errMissingJTI
	}
	_, err := parseSubject(c.Subject)
	return err
}

func parseSubject(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, errBadSubject
	}
	return uint(id), nil
}

func isShapeError(err error) bool {
	return errors.Is(err, errWrongType) ||
		errors.Is(err, errBadSubject) ||
		errors.Is(err, errMissingJTI) ||
		errors.Is(err, errUnexpectedJTI)
}
