package totp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"skinwatch/internal/totp"
)

// base32 of the RFC 6238 SHA1 test key "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerate_RFC6238Vectors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1234567890, "005924"},
	}
	for _, tc := range cases {
		got, err := totp.Generate(rfcSecret, time.Unix(tc.unix, 0), totp.DefaultStep, 0)
		require.NoError(t, err)
		require.Equalf(t, tc.want, got, "unix=%d", tc.unix)
	}
}

func TestGenerate_ShiftSelectsNeighbourWindow(t *testing.T) {
	t.Parallel()

	at := time.Unix(1111111109, 0)

	// Arrange: the code for the previous window computed directly
	prev, err := totp.Generate(rfcSecret, at.Add(-totp.DefaultStep), totp.DefaultStep, 0)
	require.NoError(t, err)

	// Act: the same window reached through a negative shift
	shifted, err := totp.Generate(rfcSecret, at, totp.DefaultStep, -1)
	require.NoError(t, err)
	require.Equal(t, prev, shifted)

	// Assert: a forward shift lands elsewhere
	next, err := totp.Generate(rfcSecret, at, totp.DefaultStep, 1)
	require.NoError(t, err)
	require.NotEqual(t, shifted, next)
}

func TestGenerator_Code(t *testing.T) {
	t.Parallel()

	clock := func() time.Time { return time.Unix(59, 0) }
	g, err := totp.New(" gezd gnbv gy3t qojq gezd gnbv gy3t qojq ", totp.WithClock(clock))
	require.NoError(t, err)
	require.Equal(t, totp.DefaultStep, g.Step())

	code, err := g.Code(0)
	require.NoError(t, err)
	require.Equal(t, "287082", code)

	// Assert: deterministic across calls
	again, err := g.Code(0)
	require.NoError(t, err)
	require.Equal(t, code, again)
}

func TestNew_RejectsBadSecret(t *testing.T) {
	t.Parallel()

	_, err := totp.New("")
	require.Error(t, err)

	_, err = totp.New("not*base32!")
	require.Error(t, err)
}
