package memstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brasaviva/api/internal/store"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Set(ctx, "settings", "businessInfo", json.RawMessage(`{"businessName":"Brasa"}`))
	require.NoError(t, err)

	data, err := s.Get(ctx, "settings", "businessInfo")
	require.NoError(t, err)
	assert.JSONEq(t, `{"businessName":"Brasa"}`, string(data))
}

func TestGetMissing(t *testing.T) {
	s := New()

	_, err := s.Get(context.Background(), "settings", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddAssignsUniqueIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.Add(ctx, "menu", json.RawMessage(`{"name":"a"}`))
	require.NoError(t, err)
	id2, err := s.Add(ctx, "menu", json.RawMessage(`{"name":"b"}`))
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)
}

func TestSetFullyReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "menu", "x", json.RawMessage(`{"name":"a","image":"data:png"}`)))
	require.NoError(t, s.Set(ctx, "menu", "x", json.RawMessage(`{"name":"b"}`)))

	data, err := s.Get(ctx, "menu", "x")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "b", doc["name"])
	_, hasImage := doc["image"]
	assert.False(t, hasImage, "image should not survive a full replace")
}

func TestPatchMergesFields(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "reservations", "r1",
		json.RawMessage(`{"status":"pendiente","name":"Ana"}`)))
	require.NoError(t, s.Patch(ctx, "reservations", "r1", map[string]any{"status": "confirmada"}))

	data, err := s.Get(ctx, "reservations", "r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"confirmada","name":"Ana"}`, string(data))
}

func TestPatchMissing(t *testing.T) {
	s := New()

	err := s.Patch(context.Background(), "reservations", "nope", map[string]any{"status": "confirmada"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "menu", "x", json.RawMessage(`{}`)))
	require.NoError(t, s.Delete(ctx, "menu", "x"))

	_, err := s.Get(ctx, "menu", "x")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "menu", "x"), store.ErrNotFound)
}

func TestListOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Add(ctx, "reservations", json.RawMessage(`{"date":"2024-05-01"}`))
	require.NoError(t, err)
	_, err = s.Add(ctx, "reservations", json.RawMessage(`{"date":"2024-06-15"}`))
	require.NoError(t, err)
	_, err = s.Add(ctx, "reservations", json.RawMessage(`{"date":"2024-04-20"}`))
	require.NoError(t, err)

	docs, err := s.List(ctx, "reservations", store.Query{OrderBy: "date", Desc: true})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	dates := make([]string, len(docs))
	for i, d := range docs {
		var doc map[string]string
		require.NoError(t, json.Unmarshal(d.Data, &doc))
		dates[i] = doc["date"]
	}
	assert.Equal(t, []string{"2024-06-15", "2024-05-01", "2024-04-20"}, dates)
}

func TestWatchDeliversTicks(t *testing.T) {
	s := New()
	ctx := context.Background()

	ticks, release, err := s.Watch(ctx, "menu")
	require.NoError(t, err)
	defer release()

	require.NoError(t, s.Set(ctx, "menu", "x", json.RawMessage(`{}`)))

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("no tick after write")
	}
}

func TestWatchScopedToCollection(t *testing.T) {
	s := New()
	ctx := context.Background()

	ticks, release, err := s.Watch(ctx, "menu")
	require.NoError(t, err)
	defer release()

	require.NoError(t, s.Set(ctx, "settings", "admin", json.RawMessage(`{}`)))

	select {
	case <-ticks:
		t.Fatal("tick for unrelated collection")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchReleaseClosesChannel(t *testing.T) {
	s := New()

	ticks, release, err := s.Watch(context.Background(), "menu")
	require.NoError(t, err)

	release()
	release() // safe twice

	_, open := <-ticks
	assert.False(t, open)
}
