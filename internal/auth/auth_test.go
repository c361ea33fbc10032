package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDailyPrefix(t *testing.T) {
	day4 := time.Date(2026, time.September, 4, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "048080", DailyPrefix(day4))

	day21 := time.Date(2026, time.September, 21, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "218080", DailyPrefix(day21))
}

func TestMinPasscodeLen(t *testing.T) {
	// daily prefix (6) + tenant id (4)
	require.Equal(t, 10, MinPasscodeLen)
}

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateToken("1234")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "1234", claims.TenantID)
	require.True(t, claims.Authenticated)
}

func TestTokenRejectedWithWrongSecret(t *testing.T) {
	SetSecret("test-secret")
	token, err := GenerateToken("1234")
	require.NoError(t, err)

	SetSecret("other-secret")
	_, err = ValidateToken(token)
	require.Error(t, err)

	SetSecret("test-secret")
}

func TestTamperedTokenRejected(t *testing.T) {
	SetSecret("test-secret")
	token, err := GenerateToken("1234")
	require.NoError(t, err)

	_, err = ValidateToken(token + "x")
	require.Error(t, err)

	_, err = ValidateToken("not-a-token")
	require.Error(t, err)
}
