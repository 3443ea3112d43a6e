// Package record defines the domain records synchronized between the
// application and the document store.
package record

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/brasaviva/api/internal/enum"
)

// Defaults applied when the backing store has no documents yet.
const (
	DefaultBusinessName  = "Restaurante"
	DefaultAdminPassword = "admin123"
)

// Validation errors shared by the API and seed tooling.
var (
	ErrNameRequired    = errors.New("name is required")
	ErrInvalidCategory = errors.New("invalid category")
	ErrNegativePrice   = errors.New("price must be >= 0")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrGuestsTooFew    = errors.New("guests must be >= 1")
	ErrDateRequired    = errors.New("date is required")
	ErrTimeRequired    = errors.New("time is required")
)

// BusinessInfo is the singleton site configuration. LogoURL holds a
// data URI or is empty.
type BusinessInfo struct {
	BusinessName string `json:"businessName"`
	LogoURL      string `json:"logoUrl"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Slogan       string `json:"slogan"`
}

// MenuItem is a dish on the public menu. ID is store-assigned and
// empty until the item is first persisted.
type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
}

// Validate checks the fields a menu item must carry before it is
// persisted. The ID is intentionally not checked: empty means insert.
func (m MenuItem) Validate() error {
	if m.Name == "" {
		return ErrNameRequired
	}
	if !enum.ValidCategory(m.Category) {
		return ErrInvalidCategory
	}
	if m.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// Reservation is a dining reservation. Status is the only field
// mutated after creation; everything else is immutable until deletion.
type Reservation struct {
	ID        string `json:"id"`
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

// Validate checks reservation intake fields.
func (r Reservation) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if r.Date == "" {
		return ErrDateRequired
	}
	if r.Time == "" {
		return ErrTimeRequired
	}
	if r.Guests < 1 {
		return ErrGuestsTooFew
	}
	if !enum.ValidCategory(r.Type) {
		return ErrInvalidCategory
	}
	return nil
}
