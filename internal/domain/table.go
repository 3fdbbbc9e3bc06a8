package domain

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Table is a seating position. Occupancy is derived, never stored.
type Table struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	TableNumber string    `json:"table_number"`
	Capacity    int       `json:"capacity"`
	Location    string    `json:"location_area,omitempty"`
	IsActive    bool      `json:"is_active"`
	QRPayload   string    `json:"qr_code_url,omitempty"`
}

// TableDeepLink builds the payload encoded in a table's QR code: the public
// menu of the business with the table number preselected.
func TableDeepLink(baseURL, businessSlug, tableNumber string) string {
	q := url.Values{}
	q.Set("table", tableNumber)
	return strings.TrimRight(baseURL, "/") + "/menu/" + url.PathEscape(businessSlug) + "?" + q.Encode()
}
