package types

import (
	"time"

	"github.com/google/uuid"
)

// CityDetail matches the cities table: one geocoded place per normalized
// lookup key.
type CityDetail struct {
	ID          uuid.UUID `json:"id"`
	LookupKey   string    `json:"lookup_key"`
	DisplayName string    `json:"display_name"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	ResolvedAt  time.Time `json:"resolved_at"`
}
