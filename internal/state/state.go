// Package state holds the process-wide snapshot of synchronized
// records and the mutation API the HTTP layer calls into. The store
// is an explicit object constructed once at startup and injected,
// never an ambient singleton.
//
// Mutations never write the snapshot directly: each one passes
// through the sync adapter and the snapshot catches up on the next
// subscription delivery. A failed mutation therefore leaves the
// snapshot untouched.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/brasaviva/api/internal/record"
	"github.com/brasaviva/api/internal/syncer"
)

// Topics passed to change listeners after a snapshot update.
const (
	TopicBusiness     = "business"
	TopicMenu         = "menu"
	TopicReservations = "reservations"
)

// SyncAdapter is the slice of the sync layer the state store needs.
// Satisfied by *syncer.Adapter; narrow interface for testability.
type SyncAdapter interface {
	SaveBusinessInfo(ctx context.Context, info record.BusinessInfo) error
	SubscribeBusinessInfo(ctx context.Context, fn func(record.BusinessInfo)) (syncer.Unsubscribe, error)

	SaveAdminPassword(ctx context.Context, password string) error
	SubscribeAdminPassword(ctx context.Context, fn func(string)) (syncer.Unsubscribe, error)

	SaveMenuItem(ctx context.Context, item record.MenuItem) (string, error)
	DeleteMenuItem(ctx context.Context, id string) error
	SubscribeMenu(ctx context.Context, fn func([]record.MenuItem)) (syncer.Unsubscribe, error)

	AddReservation(ctx context.Context, res record.Reservation) (string, error)
	UpdateReservationStatus(ctx context.Context, id, status string) error
	DeleteReservation(ctx context.Context, id string) error
	DeleteAllReservations(ctx context.Context) error
	SubscribeReservations(ctx context.Context, fn func([]record.Reservation)) (syncer.Unsubscribe, error)
}

// Snapshot is the last-known state of every synchronized record
// family plus the session flags.
type Snapshot struct {
	BusinessName string
	LogoURL      string
	Phone        string
	Address      string
	Slogan       string

	MenuItems    []record.MenuItem
	Reservations []record.Reservation

	AdminPassword   string
	IsAdminLoggedIn bool
	LoginError      bool

	Loading bool
}

// Store bridges the HTTP layer and the sync adapter. Subscription
// deliveries replace their slice of the snapshot wholesale under the
// lock; last delivered wins.
type Store struct {
	adapter SyncAdapter
	session SessionStorage

	mu     sync.RWMutex
	snap   Snapshot
	unsubs []syncer.Unsubscribe

	listenerMu sync.RWMutex
	listeners  []func(topic string)

	// Overridable in tests; fixed in production.
	loadingCeiling time.Duration
	loginErrorTTL  time.Duration
}

// New creates a Store with defaults in place and loading set. Call
// Start to open the subscriptions.
func New(adapter SyncAdapter, session SessionStorage) *Store {
	return &Store{
		adapter: adapter,
		session: session,
		snap: Snapshot{
			BusinessName:  record.DefaultBusinessName,
			AdminPassword: record.DefaultAdminPassword,
			Loading:       true,
		},
		loadingCeiling: 3 * time.Second,
		loginErrorTTL:  time.Second,
	}
}

// Start opens one standing subscription per record family, restores
// the session login flag and arms the loading ceiling. At most one
// live subscription per family exists at a time.
func (s *Store) Start(ctx context.Context) error {
	unsub, err := s.adapter.SubscribeBusinessInfo(ctx, func(info record.BusinessInfo) {
		s.mu.Lock()
		s.snap.BusinessName = fallback(info.BusinessName, record.DefaultBusinessName)
		s.snap.LogoURL = info.LogoURL
		s.snap.Phone = info.Phone
		s.snap.Address = info.Address
		s.snap.Slogan = info.Slogan
		s.snap.Loading = false
		s.mu.Unlock()
		s.notify(TopicBusiness)
	})
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsub)

	unsub, err = s.adapter.SubscribeMenu(ctx, func(items []record.MenuItem) {
		s.mu.Lock()
		s.snap.MenuItems = items
		s.snap.Loading = false
		s.mu.Unlock()
		s.notify(TopicMenu)
	})
	if err != nil {
		s.Close()
		return err
	}
	s.unsubs = append(s.unsubs, unsub)

	unsub, err = s.adapter.SubscribeReservations(ctx, func(items []record.Reservation) {
		s.mu.Lock()
		s.snap.Reservations = items
		s.mu.Unlock()
		s.notify(TopicReservations)
	})
	if err != nil {
		s.Close()
		return err
	}
	s.unsubs = append(s.unsubs, unsub)

	unsub, err = s.adapter.SubscribeAdminPassword(ctx, func(password string) {
		s.mu.Lock()
		s.snap.AdminPassword = password
		s.mu.Unlock()
	})
	if err != nil {
		s.Close()
		return err
	}
	s.unsubs = append(s.unsubs, unsub)

	if v, ok := s.session.Get(SessionKeyAdminLoggedIn); ok && v == "true" {
		s.mu.Lock()
		s.snap.IsAdminLoggedIn = true
		s.mu.Unlock()
	}

	// Ceiling in case the store holds no documents yet: the spinner
	// must not run forever. One-shot, never cancelled; harmless when
	// data already arrived.
	time.AfterFunc(s.loadingCeiling, func() {
		s.mu.Lock()
		s.snap.Loading = false
		s.mu.Unlock()
	})

	return nil
}

// Close releases every open subscription.
func (s *Store) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

// OnChange registers a listener invoked with the topic of every
// snapshot update. Listeners run outside the snapshot lock.
func (s *Store) OnChange(fn func(topic string)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(topic string) {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	for _, fn := range s.listeners {
		fn(topic)
	}
}

// Snapshot returns a copy of the current snapshot. Slices are copied
// so callers can hold the result across deliveries.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	snap.MenuItems = append([]record.MenuItem(nil), s.snap.MenuItems...)
	snap.Reservations = append([]record.Reservation(nil), s.snap.Reservations...)
	return snap
}

// ── Mutations: pass-throughs to the sync adapter ──

func (s *Store) SetBusinessInfo(ctx context.Context, info record.BusinessInfo) error {
	return s.adapter.SaveBusinessInfo(ctx, info)
}

func (s *Store) AddMenuItem(ctx context.Context, item record.MenuItem) (string, error) {
	item.ID = ""
	return s.adapter.SaveMenuItem(ctx, item)
}

func (s *Store) UpdateMenuItem(ctx context.Context, item record.MenuItem) error {
	_, err := s.adapter.SaveMenuItem(ctx, item)
	return err
}

func (s *Store) RemoveMenuItem(ctx context.Context, id string) error {
	return s.adapter.DeleteMenuItem(ctx, id)
}

func (s *Store) AddReservation(ctx context.Context, res record.Reservation) (string, error) {
	return s.adapter.AddReservation(ctx, res)
}

func (s *Store) UpdateReservationStatus(ctx context.Context, id, status string) error {
	return s.adapter.UpdateReservationStatus(ctx, id, status)
}

func (s *Store) RemoveReservation(ctx context.Context, id string) error {
	return s.adapter.DeleteReservation(ctx, id)
}

func (s *Store) ClearAllReservations(ctx context.Context) error {
	return s.adapter.DeleteAllReservations(ctx)
}

func (s *Store) ChangePassword(ctx context.Context, newPassword string) error {
	return s.adapter.SaveAdminPassword(ctx, newPassword)
}

// ── Session ──

// Login compares the given password against the synchronized admin
// password. Plaintext compare, as stored. On failure a transient
// error flag is raised and self-clears after the configured TTL.
func (s *Store) Login(password string) bool {
	s.mu.Lock()
	if password == s.snap.AdminPassword {
		s.snap.IsAdminLoggedIn = true
		s.snap.LoginError = false
		s.mu.Unlock()
		s.session.Set(SessionKeyAdminLoggedIn, "true")
		return true
	}
	s.snap.LoginError = true
	s.mu.Unlock()

	time.AfterFunc(s.loginErrorTTL, func() {
		s.mu.Lock()
		s.snap.LoginError = false
		s.mu.Unlock()
	})
	return false
}

// Logout clears the login flag and its session-scoped key.
func (s *Store) Logout() {
	s.mu.Lock()
	s.snap.IsAdminLoggedIn = false
	s.mu.Unlock()
	s.session.Delete(SessionKeyAdminLoggedIn)
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
