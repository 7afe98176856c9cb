package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smsline/smsline/internal/model"
	appErr "github.com/smsline/smsline/internal/pkg/errors"
)

func testEntry(id, correlation string, rentedAt int64) *entry {
	return newEntry(&model.Verification{
		ID:            id,
		CorrelationID: correlation,
		Status:        model.StatusWaiting,
		RentedAt:      rentedAt,
	})
}

func TestRegistryInsertConflict(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert(testEntry("a", "c1", 1)))
	require.ErrorIs(t, r.Insert(testEntry("a", "c1", 2)), appErr.ErrConflict)
}

func TestRegistryGetAndRemove(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert(testEntry("a", "c1", 1)))

	e, err := r.Get("a")
	require.NoError(t, err)
	require.Equal(t, "a", e.snapshot().ID)

	r.Remove("a")
	_, err = r.Get("a")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.Empty(t, r.ListByCorrelation("c1"))
}

func TestRegistryListByCorrelationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert(testEntry("b", "c1", 20)))
	require.NoError(t, r.Insert(testEntry("a", "c1", 10)))
	require.NoError(t, r.Insert(testEntry("x", "c2", 5)))

	list := r.ListByCorrelation("c1")
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ID)
	require.Equal(t, "b", list[1].ID)
}

func TestRegistryActivePrimaryPicksNewestNonTerminal(t *testing.T) {
	r := NewRegistry()
	old := testEntry("old", "c1", 10)
	old.v.Status = model.StatusCancelled
	require.NoError(t, r.Insert(old))
	require.NoError(t, r.Insert(testEntry("mid", "c1", 20)))
	require.NoError(t, r.Insert(testEntry("new", "c1", 30)))

	primary := r.ActivePrimary("c1")
	require.NotNil(t, primary)
	require.Equal(t, "new", primary.snapshot().ID)

	require.Nil(t, r.ActivePrimary("missing"))
}

func TestRegistryEvictTerminalBefore(t *testing.T) {
	r := NewRegistry()
	done := testEntry("done", "c1", 10)
	done.v.Status = model.StatusExpired
	done.terminalAt = 100
	require.NoError(t, r.Insert(done))
	live := testEntry("live", "c1", 20)
	require.NoError(t, r.Insert(live))

	require.Empty(t, r.EvictTerminalBefore(50))

	evicted := r.EvictTerminalBefore(200)
	require.Equal(t, []string{"done"}, evicted)

	_, err := r.Get("done")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = r.Get("live")
	require.NoError(t, err)
}

func TestRegistryListActiveSkipsTerminal(t *testing.T) {
	r := NewRegistry()
	done := testEntry("done", "c1", 10)
	done.v.Status = model.StatusCompleted
	require.NoError(t, r.Insert(done))
	require.NoError(t, r.Insert(testEntry("live", "c2", 20)))

	active := r.ListActive()
	require.Len(t, active, 1)
	require.Equal(t, "live", active[0].ID)
}
