// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cachestore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AutoJunjie/async-paper-retriever/internal/backend"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

func openStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	s, err := Open(types.CacheConfig{Dir: t.TempDir(), MaxEntries: maxEntries}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePayload() Payload {
	return Payload{
		Results: []backend.ResultRecord{
			{ID: "d1", Title: "Diabetes care 2021", Score: 0.91, Abstract: "..."},
			{ID: "d2", Title: "Metformin outcomes", Score: 0.55},
		},
		Total:          2,
		RewrittenTerms: []string{"diabetes", "mellitus"},
		SearchTimeMS:   840,
	}
}

// --- Key ---

func TestKey_Deterministic(t *testing.T) {
	a := Key("diabetes", types.SearchHybrid, true)
	b := Key("diabetes", types.SearchHybrid, true)
	assert.Equal(t, a, b)
}

func TestKey_DistinguishesInputs(t *testing.T) {
	base := Key("diabetes", types.SearchHybrid, true)
	assert.NotEqual(t, base, Key("diabetes", types.SearchHybrid, false))
	assert.NotEqual(t, base, Key("diabetes", types.SearchKeyword, true))
	assert.NotEqual(t, base, Key("metformin", types.SearchHybrid, true))
}

func TestKey_SeparatorCollisionResistant(t *testing.T) {
	// A query containing the separator must not forge another key.
	forged := Key("diabetes|keyword", types.SearchHybrid, true)
	honest := Key("diabetes", types.SearchType("keyword|hybrid"), true)
	assert.NotEqual(t, forged, honest)
}

// --- Load / Save ---

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := openStore(t, 10)
	ctx := context.Background()
	key := Key("diabetes", types.SearchHybrid, true)

	require.NoError(t, s.Save(ctx, key, samplePayload()))

	entry, ok, err := s.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, samplePayload(), entry.Payload)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestLoad_Absent(t *testing.T) {
	s := openStore(t, 10)

	_, ok, err := s.Load(context.Background(), Key("nothing", types.SearchKeyword, false))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoad_ExpiredEntryPurged(t *testing.T) {
	s := openStore(t, 10)
	ctx := context.Background()
	key := Key("diabetes", types.SearchHybrid, true)

	wrote := time.Now()
	s.now = func() time.Time { return wrote }
	require.NoError(t, s.Save(ctx, key, samplePayload()))

	// Just inside the TTL: still present.
	s.now = func() time.Time { return wrote.Add(24*time.Hour - time.Second) }
	_, ok, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	// Past the TTL: absent, and the row is purged.
	s.now = func() time.Time { return wrote.Add(24 * time.Hour) }
	_, ok, err = s.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSave_OverwriteSameKey(t *testing.T) {
	s := openStore(t, 10)
	ctx := context.Background()
	key := Key("diabetes", types.SearchHybrid, true)

	require.NoError(t, s.Save(ctx, key, samplePayload()))

	updated := samplePayload()
	updated.Total = 9
	require.NoError(t, s.Save(ctx, key, updated))

	entry, ok, err := s.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, entry.Total)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// --- capacity and eviction ---

func fillStore(t *testing.T, s *Store, n int) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return ts }
		key := Key(fmt.Sprintf("query-%03d", i), types.SearchKeyword, false)
		require.NoError(t, s.Save(context.Background(), key, samplePayload()))
	}
	s.now = time.Now
}

func TestSave_QuotaExceededEvictsAndDrops(t *testing.T) {
	s := openStore(t, 4)
	ctx := context.Background()
	fillStore(t, s, 4)

	err := s.Save(ctx, Key("one-more", types.SearchKeyword, false), samplePayload())
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// The oldest half was evicted and the new write dropped.
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := s.Load(ctx, Key("one-more", types.SearchKeyword, false))
	require.NoError(t, err)
	assert.False(t, ok)

	// A caller retry now succeeds.
	require.NoError(t, s.Save(ctx, Key("one-more", types.SearchKeyword, false), samplePayload()))
}

func TestEvictOldestHalf_KeepsNewest(t *testing.T) {
	tests := []struct {
		entries int
		left    int
	}{
		{5, 3}, // floor(5/2)=2 evicted
		{4, 2},
		{1, 1},
		{0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d entries", tt.entries), func(t *testing.T) {
			s := openStore(t, 100)
			ctx := context.Background()
			fillStore(t, s, tt.entries)

			evicted, err := s.EvictOldestHalf(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.entries/2, evicted)

			n, err := s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.left, n)

			// The survivors are the most recently written entries.
			for i := tt.entries - tt.left; i < tt.entries; i++ {
				key := Key(fmt.Sprintf("query-%03d", i), types.SearchKeyword, false)
				_, ok, err := s.Load(ctx, key)
				require.NoError(t, err)
				assert.True(t, ok, "expected %s to survive", key)
			}
		})
	}
}

func TestClearAll(t *testing.T) {
	s := openStore(t, 100)
	ctx := context.Background()
	fillStore(t, s, 6)

	require.NoError(t, s.ClearAll(ctx))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := Key("diabetes", types.SearchHybrid, true)

	s, err := Open(types.CacheConfig{Dir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, key, samplePayload()))
	require.NoError(t, s.Close())

	s2, err := Open(types.CacheConfig{Dir: dir}, nil)
	require.NoError(t, err)
	defer s2.Close()

	entry, ok, err := s2.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, samplePayload(), entry.Payload)
}
