// Package gate implements the passphrase prompt shown before the add form.
//
// The gate is a UI convenience only. It is not access control: every
// repository operation and every API endpoint works without a ticket, and
// anyone can skip the prompt.
package gate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"medshelf/m/internal/config"
)

const ticketSubject = "add-form"

var (
	ErrWrongPassphrase = errors.New("incorrect passphrase")
	ErrInvalidTicket   = errors.New("invalid reveal ticket")
)

// Gate checks the prompt passphrase and issues reveal tickets.
type Gate struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(cfg config.GateConfig) *Gate {
	return &Gate{
		hash:   []byte(cfg.PassphraseHash),
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL(),
		now:    time.Now,
	}
}

// Enabled reports whether a passphrase is configured. Without one the
// prompt accepts anything.
func (g *Gate) Enabled() bool {
	return len(g.hash) > 0
}

// HashPassphrase produces the value stored in the gate configuration.
func HashPassphrase(passphrase string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash passphrase: %w", err)
	}
	return string(hashed), nil
}

// Unlock compares passphrase with the configured hash and returns a
// signed ticket that keeps the add form revealed until it expires.
func (g *Gate) Unlock(passphrase string) (string, error) {
	if g.Enabled() && bcrypt.CompareHashAndPassword(g.hash, []byte(passphrase)) != nil {
		return "", ErrWrongPassphrase
	}
	now := g.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   ticketSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign ticket: %w", err)
	}
	return signed, nil
}

// Verify checks a ticket issued by Unlock.
func (g *Gate) Verify(ticket string) error {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(ticket, &claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.now), jwt.WithSubject(ticketSubject))
	if err != nil || !token.Valid {
		return ErrInvalidTicket
	}
	return nil
}

// Revealed reports whether the add form should be shown for ticket.
func (g *Gate) Revealed(ticket string) bool {
	return g.Verify(ticket) == nil
}
