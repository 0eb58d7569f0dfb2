package jwt

import (
	"testing"
	"time"

	"itp-scheduler/config"

	"github.com/stretchr/testify/require"
)

func TestStaffTokenRoundTrip(t *testing.T) {
	s := NewJWTService(config.JWTConfig{Secret: "s3cret", Issuer: "itp-scheduler", AccessExpiry: time.Hour})

	token, err := s.GenerateStaffToken("42", "Maria")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "42", claims.StaffID)
	require.Equal(t, "staff:Maria", claims.Actor())
	require.NotEmpty(t, claims.TokenID)
}

func TestValidateToken_Rejects(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s3cret", Issuer: "itp-scheduler", AccessExpiry: time.Hour}
	s := NewJWTService(cfg)

	otherSecret := NewJWTService(config.JWTConfig{Secret: "other", Issuer: cfg.Issuer, AccessExpiry: time.Hour})
	forged, err := otherSecret.GenerateStaffToken("42", "Maria")
	require.NoError(t, err)
	_, err = s.ValidateToken(forged)
	require.Error(t, err)

	otherIssuer := NewJWTService(config.JWTConfig{Secret: cfg.Secret, Issuer: "someone-else", AccessExpiry: time.Hour})
	foreign, err := otherIssuer.GenerateStaffToken("42", "Maria")
	require.NoError(t, err)
	_, err = s.ValidateToken(foreign)
	require.Error(t, err)

	expired := NewJWTService(config.JWTConfig{Secret: cfg.Secret, Issuer: cfg.Issuer, AccessExpiry: -time.Minute})
	old, err := expired.GenerateStaffToken("42", "Maria")
	require.NoError(t, err)
	_, err = s.ValidateToken(old)
	require.Error(t, err)

	noID, err := s.GenerateStaffToken("", "")
	require.NoError(t, err)
	_, err = s.ValidateToken(noID)
	require.Error(t, err)

	_, err = s.ValidateToken("garbage")
	require.Error(t, err)
}

func TestActorFallsBackToID(t *testing.T) {
	require.Equal(t, "staff:7", (&Claims{StaffID: "7"}).Actor())
}
