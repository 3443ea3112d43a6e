// Package syncer is the sole translator between domain records and the
// document store. Every subscription delivers once immediately with
// current state and again after every remote change, until released.
package syncer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/enum"
	"github.com/brasaviva/api/internal/record"
	"github.com/brasaviva/api/internal/store"
)

// Collection and singleton document names in the backing store.
const (
	colSettings     = "settings"
	colMenu         = "menu"
	colReservations = "reservations"

	docBusinessInfo  = "businessInfo"
	docAdminPassword = "admin"
)

// Unsubscribe releases a standing subscription. Safe to call more
// than once.
type Unsubscribe func()

// Adapter wraps a document store with typed per-entity operations.
// It performs no retries: a failed write surfaces to the caller, a
// failed re-read during a subscription is logged and skipped.
type Adapter struct {
	store store.Store
	log   *logrus.Entry
	now   func() time.Time
}

// New creates an Adapter over the given store.
func New(s store.Store, log *logrus.Logger) *Adapter {
	return &Adapter{
		store: s,
		log:   log.WithField("component", "sync"),
		now:   time.Now,
	}
}

// ── Business info ──

// SaveBusinessInfo fully replaces the business info singleton.
func (a *Adapter) SaveBusinessInfo(ctx context.Context, info record.BusinessInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "encode business info")
	}
	return a.store.Set(ctx, colSettings, docBusinessInfo, data)
}

// SubscribeBusinessInfo delivers the business info singleton whenever
// it changes. No delivery happens until the document exists.
func (a *Adapter) SubscribeBusinessInfo(ctx context.Context, fn func(record.BusinessInfo)) (Unsubscribe, error) {
	return a.subscribe(ctx, colSettings, func() error {
		data, err := a.store.Get(ctx, colSettings, docBusinessInfo)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var info record.BusinessInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return errors.Wrap(err, "decode business info")
		}
		fn(info)
		return nil
	})
}

// ── Admin password ──

// SaveAdminPassword overwrites the admin password singleton.
func (a *Adapter) SaveAdminPassword(ctx context.Context, password string) error {
	data, err := json.Marshal(map[string]string{"password": password})
	if err != nil {
		return errors.Wrap(err, "encode admin password")
	}
	return a.store.Set(ctx, colSettings, docAdminPassword, data)
}

// SubscribeAdminPassword delivers the admin password on every change,
// falling back to the default constant while the document is absent.
func (a *Adapter) SubscribeAdminPassword(ctx context.Context, fn func(string)) (Unsubscribe, error) {
	return a.subscribe(ctx, colSettings, func() error {
		data, err := a.store.Get(ctx, colSettings, docAdminPassword)
		if errors.Is(err, store.ErrNotFound) {
			fn(record.DefaultAdminPassword)
			return nil
		}
		if err != nil {
			return err
		}
		var doc struct {
			Password string `json:"password"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return errors.Wrap(err, "decode admin password")
		}
		fn(doc.Password)
		return nil
	})
}

// ── Menu ──

// menuItemDoc is the stored shape of a menu item: the id lives in the
// document key, never in the payload.
type menuItemDoc struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
}

func toMenuItemDoc(m record.MenuItem) menuItemDoc {
	return menuItemDoc{
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Category:    m.Category,
		Image:       m.Image,
		Available:   m.Available,
	}
}

func (d menuItemDoc) toRecord(id string) record.MenuItem {
	return record.MenuItem{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		Image:       d.Image,
		Available:   d.Available,
	}
}

// SaveMenuItem upserts a menu item. A non-empty id overwrites that
// document in full; an empty id inserts and returns the new id.
func (a *Adapter) SaveMenuItem(ctx context.Context, item record.MenuItem) (string, error) {
	data, err := json.Marshal(toMenuItemDoc(item))
	if err != nil {
		return "", errors.Wrap(err, "encode menu item")
	}
	if item.ID != "" {
		return item.ID, a.store.Set(ctx, colMenu, item.ID, data)
	}
	return a.store.Add(ctx, colMenu, data)
}

// DeleteMenuItem removes a menu item by id.
func (a *Adapter) DeleteMenuItem(ctx context.Context, id string) error {
	return a.store.Delete(ctx, colMenu, id)
}

// SubscribeMenu delivers the full menu, ordered by category, on every
// change. An empty menu still delivers.
func (a *Adapter) SubscribeMenu(ctx context.Context, fn func([]record.MenuItem)) (Unsubscribe, error) {
	return a.subscribe(ctx, colMenu, func() error {
		items, err := a.listMenu(ctx)
		if err != nil {
			return err
		}
		fn(items)
		return nil
	})
}

func (a *Adapter) listMenu(ctx context.Context) ([]record.MenuItem, error) {
	docs, err := a.store.List(ctx, colMenu, store.Query{OrderBy: "category"})
	if err != nil {
		return nil, err
	}
	items := make([]record.MenuItem, 0, len(docs))
	for _, d := range docs {
		var doc menuItemDoc
		if err := json.Unmarshal(d.Data, &doc); err != nil {
			return nil, errors.Wrapf(err, "decode menu item %s", d.ID)
		}
		items = append(items, doc.toRecord(d.ID))
	}
	return items, nil
}

// ── Reservations ──

type reservationDoc struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Guests    int    `json:"guests"`
	Type      string `json:"type"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

func toReservationDoc(r record.Reservation) reservationDoc {
	return reservationDoc{
		Name:      r.Name,
		Phone:     r.Phone,
		Email:     r.Email,
		Date:      r.Date,
		Time:      r.Time,
		Guests:    r.Guests,
		Type:      r.Type,
		Notes:     r.Notes,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func (d reservationDoc) toRecord(id string) record.Reservation {
	return record.Reservation{
		ID:        id,
		Name:      d.Name,
		Phone:     d.Phone,
		Email:     d.Email,
		Date:      d.Date,
		Time:      d.Time,
		Guests:    d.Guests,
		Type:      d.Type,
		Notes:     d.Notes,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}

// AddReservation inserts a reservation and returns the allocated id.
// Status is forced to pendiente and createdAt stamped at the
// submission instant; there is no client-assigned-id path.
func (a *Adapter) AddReservation(ctx context.Context, res record.Reservation) (string, error) {
	res.Status = enum.ReservationPendiente
	res.CreatedAt = a.now().Format(time.RFC3339)

	data, err := json.Marshal(toReservationDoc(res))
	if err != nil {
		return "", errors.Wrap(err, "encode reservation")
	}
	return a.store.Add(ctx, colReservations, data)
}

// UpdateReservationStatus merge-patches only the status field.
func (a *Adapter) UpdateReservationStatus(ctx context.Context, id, status string) error {
	if !enum.ValidReservationStatus(status) {
		return record.ErrInvalidStatus
	}
	return a.store.Patch(ctx, colReservations, id, map[string]any{"status": status})
}

// DeleteReservation removes a reservation by id.
func (a *Adapter) DeleteReservation(ctx context.Context, id string) error {
	return a.store.Delete(ctx, colReservations, id)
}

// DeleteAllReservations removes every reservation visible at query
// time. Best effort: inserts racing the sweep survive it.
func (a *Adapter) DeleteAllReservations(ctx context.Context) error {
	docs, err := a.store.List(ctx, colReservations, store.Query{})
	if err != nil {
		return err
	}
	for _, d := range docs {
		if err := a.store.Delete(ctx, colReservations, d.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// SubscribeReservations delivers all reservations, ordered by date
// descending, on every change.
func (a *Adapter) SubscribeReservations(ctx context.Context, fn func([]record.Reservation)) (Unsubscribe, error) {
	return a.subscribe(ctx, colReservations, func() error {
		docs, err := a.store.List(ctx, colReservations, store.Query{OrderBy: "date", Desc: true})
		if err != nil {
			return err
		}
		items := make([]record.Reservation, 0, len(docs))
		for _, d := range docs {
			var doc reservationDoc
			if err := json.Unmarshal(d.Data, &doc); err != nil {
				return errors.Wrapf(err, "decode reservation %s", d.ID)
			}
			items = append(items, doc.toRecord(d.ID))
		}
		fn(items)
		return nil
	})
}

// ── Subscription plumbing ──

// subscribe wires a deliver function to a collection watch. The first
// delivery happens synchronously before subscribe returns; later
// deliveries run on a background goroutine until released. Delivery
// errors after the first are logged, leaving the last good state in
// place.
func (a *Adapter) subscribe(ctx context.Context, collection string, deliver func() error) (Unsubscribe, error) {
	ticks, release, err := a.store.Watch(ctx, collection)
	if err != nil {
		return nil, errors.Wrapf(err, "watch %s", collection)
	}

	if err := deliver(); err != nil {
		release()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case _, ok := <-ticks:
				if !ok {
					return
				}
				if err := deliver(); err != nil {
					a.log.WithError(err).WithField("collection", collection).
						Warn("subscription delivery failed")
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			release()
		})
	}, nil
}
