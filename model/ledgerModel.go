// model/ledger.go
package model

import "time"

// LedgerStatus tags one unit of capacity consumption for a package on a date.
type LedgerStatus string

const (
	LedgerReserved    LedgerStatus = "reserved"
	LedgerPickedUp    LedgerStatus = "picked_up"
	LedgerMaintenance LedgerStatus = "maintenance"
	LedgerReturned    LedgerStatus = "returned"
	LedgerCancelled   LedgerStatus = "cancelled"
)

// ConsumingStatuses are the ledger states that count against capacity.
var ConsumingStatuses = []LedgerStatus{LedgerReserved, LedgerPickedUp, LedgerMaintenance}

// Consuming reports whether a row in status s occupies one unit of capacity.
func (s LedgerStatus) Consuming() bool {
	return s == LedgerReserved || s == LedgerPickedUp || s == LedgerMaintenance
}

// ValidLedgerStatus reports whether s is a known ledger status.
func ValidLedgerStatus(s LedgerStatus) bool {
	switch s {
	case LedgerReserved, LedgerPickedUp, LedgerMaintenance, LedgerReturned, LedgerCancelled:
		return true
	}
	return false
}

// LedgerRow is one unit of capacity consumption: one package, one calendar
// date, one reservation unit. Multiple rows may exist per (package, date) up
// to the package capacity.
type LedgerRow struct {
	ID        int64        `json:"id"`
	PackageID int64        `json:"package_id"`
	BookingID *int64       `json:"booking_id,omitempty"` // nil for maintenance blocks
	Date      time.Time    `json:"date"`
	Status    LedgerStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// OrphanRow is a ledger row whose booking no longer exists. Reported by
// maintenance, never auto-repaired.
type OrphanRow struct {
	RowID     int64     `json:"row_id"`
	PackageID int64     `json:"package_id"`
	BookingID int64     `json:"booking_id"`
	Date      time.Time `json:"date"`
}

// ExportRow is a ledger row denormalized with its booking context for audit.
type ExportRow struct {
	PackageID     int64        `json:"package_id"`
	BookingID     *int64       `json:"booking_id,omitempty"`
	Date          string       `json:"date"` // YYYY-MM-DD
	Status        LedgerStatus `json:"status"`
	BookingStatus string       `json:"booking_status,omitempty"`
	PickupDate    string       `json:"pickup_date,omitempty"`
	ReturnDate    string       `json:"return_date,omitempty"`
}

// LedgerExport is the self-describing backup document for the ledger table.
type LedgerExport struct {
	CreatedAt     time.Time   `json:"created_at"`
	RetentionDays int         `json:"retention_days"`
	RowCount      int         `json:"row_count"`
	Rows          []ExportRow `json:"rows"`
}
