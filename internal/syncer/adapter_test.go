package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brasaviva/api/internal/enum"
	"github.com/brasaviva/api/internal/record"
	"github.com/brasaviva/api/internal/store"
	"github.com/brasaviva/api/internal/store/memstore"
)

func newTestAdapter() *Adapter {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(memstore.New(), log)
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// collector gathers subscription deliveries under a lock.
type collector[T any] struct {
	mu         sync.Mutex
	deliveries []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, v)
}

func (c *collector[T]) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}

func (c *collector[T]) last() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliveries[len(c.deliveries)-1]
}

// ── Menu ──

func TestSaveMenuItemAssignsID(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	id, err := a.SaveMenuItem(ctx, record.MenuItem{
		Name:      "Asado",
		Price:     decimal.NewFromFloat(12.5),
		Category:  enum.CategoryNoche,
		Available: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	items, err := a.listMenu(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "Asado", items[0].Name)
	assert.True(t, items[0].Price.Equal(decimal.NewFromFloat(12.5)))
	assert.Equal(t, enum.CategoryNoche, items[0].Category)
	assert.True(t, items[0].Available)
}

func TestSaveMenuItemOverwritesNotPatches(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	id, err := a.SaveMenuItem(ctx, record.MenuItem{
		Name:     "Provoleta",
		Category: enum.CategoryNoche,
		Image:    "data:image/png;base64,AAAA",
	})
	require.NoError(t, err)

	// Second write by id without the image: full replace, so the
	// previously-set image must disappear.
	_, err = a.SaveMenuItem(ctx, record.MenuItem{
		ID:       id,
		Name:     "Provoleta",
		Category: enum.CategoryNoche,
	})
	require.NoError(t, err)

	items, err := a.listMenu(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Image)
}

func TestSubscribeMenuOrderedByCategory(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	_, err := a.SaveMenuItem(ctx, record.MenuItem{Name: "a", Category: enum.CategoryTarde})
	require.NoError(t, err)
	_, err = a.SaveMenuItem(ctx, record.MenuItem{Name: "b", Category: enum.CategoryNoche})
	require.NoError(t, err)
	_, err = a.SaveMenuItem(ctx, record.MenuItem{Name: "c", Category: enum.CategoryNoche})
	require.NoError(t, err)

	var got collector[[]record.MenuItem]
	unsub, err := a.SubscribeMenu(ctx, got.add)
	require.NoError(t, err)
	defer unsub()

	// First delivery happens before SubscribeMenu returns.
	require.Equal(t, 1, got.count())
	items := got.last()
	require.Len(t, items, 3)
	assert.Equal(t, enum.CategoryNoche, items[0].Category)
	assert.Equal(t, enum.CategoryNoche, items[1].Category)
	assert.Equal(t, enum.CategoryTarde, items[2].Category)
}

func TestSubscribeMenuDeliversOnChange(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	var got collector[[]record.MenuItem]
	unsub, err := a.SubscribeMenu(ctx, got.add)
	require.NoError(t, err)
	defer unsub()

	require.Equal(t, 1, got.count())
	assert.Empty(t, got.last())

	id, err := a.SaveMenuItem(ctx, record.MenuItem{
		Name:     "Asado",
		Price:    decimal.NewFromFloat(12.5),
		Category: enum.CategoryNoche,
	})
	require.NoError(t, err)

	waitFor(t, func() bool { return got.count() >= 2 }, "no delivery after save")
	items := got.last()
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
}

func TestUnsubscribeStopsDeliveries(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	var got collector[[]record.MenuItem]
	unsub, err := a.SubscribeMenu(ctx, got.add)
	require.NoError(t, err)

	unsub()
	unsub() // safe twice

	_, err = a.SaveMenuItem(ctx, record.MenuItem{Name: "x", Category: enum.CategoryTarde})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, got.count())
}

// ── Reservations ──

func TestAddReservationStampsStatusAndCreatedAt(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	stamp := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)
	a.now = func() time.Time { return stamp }

	id, err := a.AddReservation(ctx, record.Reservation{
		Name:   "Ana",
		Phone:  "0991",
		Date:   "2024-05-01",
		Time:   "19:00",
		Guests: 4,
		Type:   enum.CategoryNoche,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	var got collector[[]record.Reservation]
	unsub, err := a.SubscribeReservations(ctx, got.add)
	require.NoError(t, err)
	defer unsub()

	items := got.last()
	require.Len(t, items, 1)
	assert.Equal(t, enum.ReservationPendiente, items[0].Status)
	assert.Equal(t, stamp.Format(time.RFC3339), items[0].CreatedAt)
}

func TestReservationsOrderedByDateDesc(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	_, err := a.AddReservation(ctx, record.Reservation{Name: "early", Date: "2024-04-20", Time: "20:00", Guests: 2, Type: enum.CategoryTarde})
	require.NoError(t, err)
	_, err = a.AddReservation(ctx, record.Reservation{Name: "Ana", Date: "2024-05-01", Time: "19:00", Guests: 4, Type: enum.CategoryNoche})
	require.NoError(t, err)

	var got collector[[]record.Reservation]
	unsub, err := a.SubscribeReservations(ctx, got.add)
	require.NoError(t, err)
	defer unsub()

	items := got.last()
	require.Len(t, items, 2)
	assert.Equal(t, "Ana", items[0].Name)
	assert.Equal(t, "early", items[1].Name)
}

func TestUpdateReservationStatusPatchesOnlyStatus(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	id, err := a.AddReservation(ctx, record.Reservation{
		Name: "Ana", Phone: "0991", Email: "ana@example.com",
		Date: "2024-05-01", Time: "19:00", Guests: 4,
		Type: enum.CategoryNoche, Notes: "ventana",
	})
	require.NoError(t, err)

	var before record.Reservation
	unsub, err := a.SubscribeReservations(ctx, func(items []record.Reservation) {
		if len(items) == 1 {
			before = items[0]
		}
	})
	require.NoError(t, err)
	unsub()

	require.NoError(t, a.UpdateReservationStatus(ctx, id, enum.ReservationConfirmada))

	var after collector[[]record.Reservation]
	unsub, err = a.SubscribeReservations(ctx, after.add)
	require.NoError(t, err)
	defer unsub()

	items := after.last()
	require.Len(t, items, 1)
	got := items[0]
	assert.Equal(t, enum.ReservationConfirmada, got.Status)

	// Everything except status must be untouched, createdAt included.
	got.Status = before.Status
	assert.Equal(t, before, got)
}

func TestUpdateReservationStatusRejectsUnknownStatus(t *testing.T) {
	a := newTestAdapter()

	err := a.UpdateReservationStatus(context.Background(), "any", "cancelada")
	assert.ErrorIs(t, err, record.ErrInvalidStatus)
}

func TestDeleteAllReservations(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := a.AddReservation(ctx, record.Reservation{Name: "x", Date: "2024-05-01", Time: "19:00", Guests: 1, Type: enum.CategoryTarde})
		require.NoError(t, err)
	}

	require.NoError(t, a.DeleteAllReservations(ctx))

	// A fresh subscription must deliver an empty list.
	var got collector[[]record.Reservation]
	unsub, err := a.SubscribeReservations(ctx, got.add)
	require.NoError(t, err)
	defer unsub()

	assert.Empty(t, got.last())
}

// ── Singletons ──

func TestBusinessInfoRoundTrip(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	var got collector[record.BusinessInfo]
	unsub, err := a.SubscribeBusinessInfo(ctx, got.add)
	require.NoError(t, err)
	defer unsub()

	// Document absent: no initial delivery.
	assert.Equal(t, 0, got.count())

	info := record.BusinessInfo{
		BusinessName: "Brasa Viva",
		Phone:        "0991 234 567",
		Address:      "Av. del Puerto 1423",
		Slogan:       "Fuego lento",
	}
	require.NoError(t, a.SaveBusinessInfo(ctx, info))

	waitFor(t, func() bool { return got.count() >= 1 }, "no delivery after save")
	assert.Equal(t, info, got.last())
}

func TestAdminPasswordFallback(t *testing.T) {
	a := newTestAdapter()
	ctx := context.Background()

	var got collector[string]
	unsub, err := a.SubscribeAdminPassword(ctx, got.add)
	require.NoError(t, err)
	defer unsub()

	// No document in the store: the well-known fallback is delivered.
	require.Equal(t, 1, got.count())
	assert.Equal(t, record.DefaultAdminPassword, got.last())

	require.NoError(t, a.SaveAdminPassword(ctx, "nuevo-secreto"))
	waitFor(t, func() bool { return got.last() == "nuevo-secreto" }, "no delivery after password change")
}

func TestDeleteMenuItemMissing(t *testing.T) {
	a := newTestAdapter()

	err := a.DeleteMenuItem(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
