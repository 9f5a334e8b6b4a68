package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "1h")

	token, expiresAt, err := svc.GenerateAccessToken("user-1", "teacher@school.test", "Asha", user.RoleTeacher)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), expiresAt, 5)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)

	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["user_id"])
	assert.Equal(t, "teacher", claims["role"])
	assert.Equal(t, "access", claims["type"])
	assert.Equal(t, "Asha", claims["name"])
}

func TestGenerateAccessToken_InvalidExpiration(t *testing.T) {
	svc := NewJWTService("secret", "soon")
	_, _, err := svc.GenerateAccessToken("user-1", "a@b.cd", "A", user.RoleAdmin)
	assert.Error(t, err)
}
