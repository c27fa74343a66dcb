// Package attendee defines the attendee model and the client for the
// remote attendee listing endpoint:
//
//	GET <base>/events/{eventId}/attendees?pageIndex={0-based}&query={search}
//
// The client performs exactly one request per Fetch. It never retries and
// never caches; failures come back as coded errors so callers can tell a
// transport problem (A101, A104) from an unusable answer (A102).
package attendee

import (
	"time"

	apperrors "github.com/passin-dev/attendees/internal/errors"
)

// Attendee is a person registered for the event, as returned by the server.
type Attendee struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"createdAt"`
	CheckedInAt *time.Time `json:"checkedInAt"`
}

// CheckedIn reports whether the attendee has a check-in timestamp.
func (a Attendee) CheckedIn() bool {
	return a.CheckedInAt != nil
}

// Query identifies one page of the listing.
type Query struct {
	// Page is 1-based.
	Page   int    `json:"page"`
	Search string `json:"search"`
}

// Page is one page of results plus the total number of matches.
type Page struct {
	Attendees []Attendee `json:"attendees"`
	Total     int        `json:"total"`
}

// IsNetworkFailure reports whether err is a transport-level failure,
// including timeouts.
func IsNetworkFailure(err error) bool {
	return apperrors.Is(err, apperrors.CodeNetworkFailure) ||
		apperrors.Is(err, apperrors.CodeFetchTimeout)
}

// IsInvalidResponse reports whether err is a non-2xx or malformed response.
func IsInvalidResponse(err error) bool {
	return apperrors.Is(err, apperrors.CodeInvalidResponse)
}
