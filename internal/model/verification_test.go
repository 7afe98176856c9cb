package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusExpired, StatusCancelled, StatusFailed} {
		require.True(t, s.Terminal(), string(s))
	}
	for _, s := range []Status{StatusRenting, StatusWaiting, StatusCodeReceived} {
		require.False(t, s.Terminal(), string(s))
	}
}

func TestCloneIsDeep(t *testing.T) {
	v := &Verification{
		ID:    "v1",
		Codes: []Code{{Value: "111111"}},
	}
	c := v.Clone()
	c.Codes[0].Value = "mutated"
	c.Status = StatusCancelled

	require.Equal(t, "111111", v.Codes[0].Value)
	require.Equal(t, Status(""), v.Status)
}

func TestLastCode(t *testing.T) {
	v := &Verification{}
	require.Empty(t, v.LastCode())
	v.Codes = append(v.Codes, Code{Value: "111111"}, Code{Value: "222222"})
	require.Equal(t, "222222", v.LastCode())
}

func TestFormatPhone(t *testing.T) {
	require.Equal(t, "+1 406-609-7428", FormatPhone("14066097428"))
	require.Equal(t, "", FormatPhone(""))
	require.Equal(t, "12", FormatPhone("12"))
}
