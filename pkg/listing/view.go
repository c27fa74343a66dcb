package listing

import (
	"github.com/passin-dev/attendees/pkg/attendee"
)

// View is everything a presentation layer binds to. The matching actions
// are the Controller methods SetSearch, FirstPage, PreviousPage, NextPage
// and LastPage.
type View struct {
	// Search and Page are the desired state, as reflected in the URL.
	Search string `json:"search"`
	Page   int    `json:"page"`

	// PageCount and the CanGo* flags are computed from the total known for
	// the current search. While the first result for a new search is in
	// flight the total is unknown and forward navigation is disabled.
	PageCount     int  `json:"pageCount"`
	CanGoFirst    bool `json:"canGoFirst"`
	CanGoPrevious bool `json:"canGoPrevious"`
	CanGoNext     bool `json:"canGoNext"`
	CanGoLast     bool `json:"canGoLast"`

	// Attendees and Total are the last applied result; ResultFor names the
	// (page, search) that produced them.
	Attendees []attendee.Attendee `json:"attendees"`
	Total     int                 `json:"total"`
	ResultFor *attendee.Query     `json:"resultFor,omitempty"`

	State State `json:"state"`

	// Err describes the latest failure while State is Failed.
	Err string `json:"error,omitempty"`
	// ErrCode is the registered code of Err.
	ErrCode string `json:"errorCode,omitempty"`
	// RefreshFailed is set when a failure left an older result on screen.
	RefreshFailed bool `json:"refreshFailed"`
}

// Loading reports whether a request for the current key is in flight.
func (v View) Loading() bool {
	return v.State == Fetching
}

// Empty reports whether the listing settled with no results.
func (v View) Empty() bool {
	return v.State == Settled && v.Total == 0
}
