package tenant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	r := NewRegistry([]string{"1234", "5678"})

	require.True(t, r.IsValid("1234"))
	require.True(t, r.IsValid("5678"))
	require.False(t, r.IsValid("9999"))
	require.False(t, r.IsValid(""))
}

func TestTableNamesInjective(t *testing.T) {
	r := NewRegistry([]string{"1234", "5678"})

	a := r.TableNames("1234")
	b := r.TableNames("5678")

	require.Equal(t, "messages_1234", a.Messages)
	require.Equal(t, "media_1234", a.Media)
	require.NotEqual(t, a.Messages, b.Messages)
	require.NotEqual(t, a.Media, b.Media)
}

func TestExtract(t *testing.T) {
	r := NewRegistry([]string{"1234", "5678"})
	prefix := "048080"

	tests := []struct {
		name       string
		credential string
		wantID     string
		wantOK     bool
	}{
		{"well-formed", "0480801234", "1234", true},
		{"second tenant", "0480805678", "5678", true},
		{"embedded in longer input", "xx0480801234yy", "1234", true},
		{"empty", "", "", false},
		{"too short", "04808012", "", false},
		{"no tenant pattern", "0480809999", "", false},
		{"wrong prefix", "0580801234", "", false},
		{"tenant without prefix", "1234123412", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := r.Extract(tc.credential, prefix)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.wantID, id)
		})
	}
}

func TestExtractEmptyPrefix(t *testing.T) {
	r := NewRegistry([]string{"1234"})

	_, ok := r.Extract("0480801234", "")
	require.False(t, ok)
}
