package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"filescope/models"
)

func TestRestore_RoundTrip(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Upload("alice", "cid-0", "analysis-0", false)
	require.NoError(t, err)
	_, err = reg.Upload("bob", "cid-1", "", true)
	require.NoError(t, err)
	_, err = reg.Upload("alice", "cid-2", "", true)
	require.NoError(t, err)
	counted, err := reg.RecordView("bob", 1)
	require.NoError(t, err)
	require.True(t, counted)

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, 3)

	restored := New(zap.NewNop(), nil)
	require.NoError(t, restored.Restore(snapshot))

	require.Equal(t, reg.Count(), restored.Count())
	require.Equal(t, reg.ListPublic(), restored.ListPublic())
	require.Equal(t, reg.ListOwnedBy("alice"), restored.ListOwnedBy("alice"))
	require.Equal(t, reg.ListOwnedBy("bob"), restored.ListOwnedBy("bob"))

	rec, err := restored.Get("bob", 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.Views, "Counters survive a restart")

	// The ref index is rebuilt: duplicates stay rejected, IDs continue gaplessly.
	_, err = restored.Upload("carol", "cid-0", "", true)
	require.ErrorIs(t, err, ErrDuplicateRef)
	id, err := restored.Upload("carol", "cid-3", "", true)
	require.NoError(t, err)
	require.Equal(t, uint64(3), id)
}

func TestRestore_Empty(t *testing.T) {
	reg := New(zap.NewNop(), nil)
	require.NoError(t, reg.Restore(nil))
	require.Equal(t, uint64(0), reg.Count())
}

func TestRestore_RejectsBadState(t *testing.T) {
	okRec := func(id uint64, ref string) models.Dataset {
		return models.Dataset{ID: id, DatasetRef: ref, Owner: "alice"}
	}

	t.Run("non-contiguous ids", func(t *testing.T) {
		reg := New(zap.NewNop(), nil)
		err := reg.Restore([]models.Dataset{okRec(0, "cid-0"), okRec(2, "cid-2")})
		require.Error(t, err)
	})

	t.Run("duplicate ref", func(t *testing.T) {
		reg := New(zap.NewNop(), nil)
		err := reg.Restore([]models.Dataset{okRec(0, "cid-0"), okRec(1, "cid-0")})
		require.Error(t, err)
	})

	t.Run("empty ref", func(t *testing.T) {
		reg := New(zap.NewNop(), nil)
		err := reg.Restore([]models.Dataset{okRec(0, "")})
		require.Error(t, err)
	})

	t.Run("non-empty registry", func(t *testing.T) {
		reg := New(zap.NewNop(), nil)
		_, err := reg.Upload("alice", "cid-x", "", true)
		require.NoError(t, err)
		require.Error(t, reg.Restore([]models.Dataset{okRec(0, "cid-0")}))
	})
}
