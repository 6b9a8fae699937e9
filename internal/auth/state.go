package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// StateTTL is how long a login attempt may take between the redirect to
// GitHub and the callback.
const StateTTL = 10 * time.Minute

const stateIssuer = "notes"

// StateSigner issues and verifies the OAuth "state" parameter.
//
// The state is a short-lived HS256 JWT whose ID claim (jti) is a random
// nonce. The nonce is also stored in the oauth_state cookie, so a callback
// is accepted only if both the signature verifies and the nonce matches the
// browser that started the login. That stops a third party from completing
// a login flow in someone else's browser (login CSRF).
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner creates a signer with the given secret. An empty secret
// is replaced with 32 random bytes; sessions do not survive a restart
// anyway, so neither need pending logins.
func NewStateSigner(secret string) (*StateSigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("auth: generating state secret: %w", err)
		}
	}
	if len(key) < 16 {
		return nil, errors.New("auth: state secret must be at least 16 characters")
	}
	return &StateSigner{secret: key, now: time.Now}, nil
}

// Issue returns a signed state and the nonce it carries.
func (s *StateSigner) Issue() (state, nonce string, err error) {
	now := s.now()
	nonce = xid.New().String()

	c := jwt.RegisteredClaims{
		ID:        nonce,
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
	}

	state, err = jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("auth: signing state: %w", err)
	}
	return state, nonce, nil
}

// Verify checks the signature and expiry of state and that it carries
// the expected nonce.
func (s *StateSigner) Verify(state, nonce string) error {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		state,
		&c,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("auth: state expired")
		}
		return fmt.Errorf("auth: invalid state: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("auth: invalid state")
	}
	if nonce == "" || c.ID != nonce {
		return fmt.Errorf("auth: state does not belong to this browser")
	}
	return nil
}
