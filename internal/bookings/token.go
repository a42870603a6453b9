package bookings

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"reservely/internal/shared/faults"
)

// Token purposes. A pending token proves possession of an unverified
// reservation; a ticket token proves possession of a confirmed one.
const (
	TokenPurposePending = "pending"
	TokenPurposeTicket  = "ticket"
)

// ReservationClaims are the claims carried by a reservation token.
type ReservationClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies reservation possession tokens.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// MintPending issues a token bound to a pending reservation.
func (tm *TokenManager) MintPending(tempID, email string, ttl time.Duration) (string, error) {
	return tm.mint(tempID, email, TokenPurposePending, ttl)
}

// MintTicket issues a long-lived token bound to a confirmed ticket. The
// holder needs it to cancel, so it outlives the event date comfortably.
func (tm *TokenManager) MintTicket(ticketID, email string) (string, error) {
	return tm.mint(ticketID, email, TokenPurposeTicket, 366*24*time.Hour)
}

func (tm *TokenManager) mint(subject, email, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ReservationClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reservation token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks that it is bound to the expected subject
// and purpose. Any failure maps to an auth fault so callers can surface it
// uniformly.
func (tm *TokenManager) Verify(tokenString, expectedSubject, expectedPurpose string) (*ReservationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ReservationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, faults.Auth("invalid or expired reservation token")
	}

	claims, ok := token.Claims.(*ReservationClaims)
	if !ok {
		return nil, faults.Auth("invalid reservation token claims")
	}
	if claims.Purpose != expectedPurpose {
		return nil, faults.Auth("reservation token not valid for this operation")
	}
	if expectedSubject != "" && claims.Subject != expectedSubject {
		return nil, faults.Auth("reservation token does not match this reservation")
	}

	return claims, nil
}
