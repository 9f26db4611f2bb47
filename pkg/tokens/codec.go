package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Codec signs and verifies access and refresh tokens with one shared HMAC secret.
// Encode and decode read the same clock; instances are safe for concurrent use.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

type Encoded struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

func NewCodec(secret []byte, alg string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("tokens: empty signing secret")
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("tokens: unsupported algorithm %q", alg)
	}
	return &Codec{
		secret: secret,
		method: method,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock returns a copy of the codec reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) Now() time.Time {
	return c.now()
}

func (c *Codec) Encode(userID uint, kind Kind, ttl time.Duration) (Encoded, error) {
	if userID == 0 {
		return Encoded{}, errBadSubject
	}
	exp := jwt.NewNumericDate(c.now().Add(ttl))
	registered := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ExpiresAt: exp,
	}

	var claims jwt.Claims
	switch kind {
	case KindAccess:
		claims = AccessClaims{Type: KindAccess, RegisteredClaims: registered}
	case KindRefresh:
		registered.ID = uuid.NewString()
		claims = RefreshClaims{Type: KindRefresh, RegisteredClaims: registered}
	default:
		return Encoded{}, errUnknownKind
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return Encoded{}, fmt.Errorf("tokens: sign %s token: %w", kind, err)
	}

	return Encoded{
		Token:     signed,
		JTI:       registered.ID,
		ExpiresAt: exp.Time,
	}, nil
}

func (c *Codec) DecodeAccess(token string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := c.parse(token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (c *Codec) DecodeRefresh(token string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.parse(token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// Decode dispatches on the expected kind.
func (c *Codec) Decode(token string, expected Kind) (Claims, error) {
	switch expected {
	case KindAccess:
		claims, err := c.DecodeAccess(token)
		if err != nil {
			return nil, err
		}
		return *claims, nil
	case KindRefresh:
		claims, err := c.DecodeRefresh(token)
		if err != nil {
			return nil, err
		}
		return *claims, nil
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errUnknownKind)
	}
}

func (c *Codec) parse(token string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	tkn, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	switch {
	case err == nil && tkn.Valid:
		return nil
	case err == nil:
		return ErrInvalid
	case errors.Is(err, jwt.ErrTokenExpired) && !isShapeError(err):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
}
