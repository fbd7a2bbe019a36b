package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/trail/internal/storage"
	"github.com/OCAP2/trail/pkg/scene"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestRecentTrails_NewestFirstAndFiltered(t *testing.T) {
	b := New(Config{})
	require.NoError(t, b.Init())
	defer b.Close()

	for i := 1; i <= 4; i++ {
		tok := "a"
		if i%2 == 0 {
			tok = "b"
		}
		require.NoError(t, b.RecordTrail(storage.TrailRecord{TokenID: tok, TrailID: fmt.Sprintf("t%d", i)}))
	}

	all, err := b.RecentTrails("", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "t4", all[0].TrailID)

	limited, err := b.RecentTrails("", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	onlyA, err := b.RecentTrails("a", 10)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "t3", onlyA[0].TrailID)
	assert.Equal(t, "t1", onlyA[1].TrailID)
}

func TestCapacity_DropsOldest(t *testing.T) {
	b := New(Config{Capacity: 2})

	for i := 1; i <= 3; i++ {
		require.NoError(t, b.RecordTrail(storage.TrailRecord{TrailID: fmt.Sprintf("t%d", i)}))
		require.NoError(t, b.RecordRemoval(storage.RemovalRecord{TrailID: fmt.Sprintf("t%d", i)}))
	}

	all, _ := b.RecentTrails("", 0)
	require.Len(t, all, 2)
	assert.Equal(t, "t3", all[0].TrailID)
	assert.Equal(t, "t2", all[1].TrailID)

	removals := b.Removals()
	require.Len(t, removals, 2)
	assert.Equal(t, "t2", removals[0].TrailID)
}

func TestRecordTrail_CopiesPoints(t *testing.T) {
	b := New(Config{})
	points := []scene.Vector2{{X: 1, Y: 1}, {X: 2, Y: 2}}
	require.NoError(t, b.RecordTrail(storage.TrailRecord{TrailID: "t", Points: points}))

	points[0].X = 99
	got, _ := b.RecentTrails("", 1)
	assert.Equal(t, 1.0, got[0].Points[0].X)
}
