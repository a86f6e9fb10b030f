// Package webhook signs the event records queued for webhook endpoints.
package webhook

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	SecretPrefix = "whsec_"
	issuer       = "ledger"

	EventTransactionCompleted = "transaction.completed"
)

var ErrPayloadMismatch = errors.New("webhook payload does not match signature")

// Claims binds a signature to one endpoint, one event type and one payload.
type Claims struct {
	EventType   string `json:"event_type"`
	PayloadHash string `json:"payload_hash"`
	jwt.RegisteredClaims
}

func NewSecret() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return SecretPrefix + id.String(), nil
}

// Sign returns an HS256 JWT over the payload digest, keyed with the
// endpoint secret.
func Sign(secret string, endpointID int64, eventType string, payload []byte, now time.Time) (string, error) {
	claims := Claims{
		EventType:   eventType,
		PayloadHash: payloadHash(payload),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   issuer,
			Subject:  strconv.FormatInt(endpointID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify checks token against secret and payload, as a receiver would.
func Verify(secret, token string, payload []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("parse webhook signature: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid webhook signature")
	}
	if claims.PayloadHash != payloadHash(payload) {
		return nil, ErrPayloadMismatch
	}
	return claims, nil
}

func payloadHash(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
