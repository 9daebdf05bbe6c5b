// model/package.go
package model

import "time"

// Package is a rentable equipment bundle. Catalog lifecycle is owned by the
// catalog admin tooling; the booking core only reads it.
type Package struct {
	ID                        int64     `json:"id"`
	Name                      string    `json:"name"`
	Description               string    `json:"description,omitempty"`
	BaseDailyPrice            int64     `json:"base_daily_price"` // minor currency units per day
	MaxConcurrentReservations int       `json:"max_concurrent_reservations"`
	Active                    bool      `json:"active"`
	CreatedAt                 time.Time `json:"created_at"`
}
