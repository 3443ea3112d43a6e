package enum

// ── Service slots (enforced at the API boundary, stored as-is) ──

const (
	CategoryTarde = "tarde"
	CategoryNoche = "noche"
)

// ── Reservation state machine ──

const (
	ReservationPendiente  = "pendiente"
	ReservationConfirmada = "confirmada"
	ReservationRechazada  = "rechazada"
)

// ValidCategory reports whether c is a known service slot.
func ValidCategory(c string) bool {
	return c == CategoryTarde || c == CategoryNoche
}

// ValidReservationStatus reports whether s is a known reservation status.
func ValidReservationStatus(s string) bool {
	return s == ReservationPendiente || s == ReservationConfirmada || s == ReservationRechazada
}
