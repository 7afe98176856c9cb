package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupService(t *testing.T) {
	svc, ok := LookupService("ds")
	require.True(t, ok)
	require.Equal(t, "Discord", svc.Name)

	_, ok = LookupService("zz")
	require.False(t, ok)
}

func TestListServicesIsCopy(t *testing.T) {
	list := ListServices()
	require.NotEmpty(t, list)
	list[0].Name = "mutated"

	again := ListServices()
	require.NotEqual(t, "mutated", again[0].Name)
}
