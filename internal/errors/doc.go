// Package errors provides structured, coded errors for the attendee listing.
//
// Every failure the sync engine can surface maps to a registered code:
//   - network: the listing endpoint could not be reached (A101, A104)
//   - response: the endpoint answered with something unusable (A102)
//   - sync: outcomes of the request ordering guard (A103)
//   - config: configuration file and value problems (A120-A122)
//   - cli: command line usage problems (A140)
//
// A103 is not a failure. It marks a response that arrived after a newer
// request was issued and was therefore dropped; it is registered so logs
// and tests can tell it apart from real failures.
//
// # Usage
//
//	err := errors.New("A101").
//	    Wrap(cause).
//	    WithDetail("GET http://localhost:3333/events/…/attendees")
//
//	if errors.Is(err, "A101") {
//	    // transport problem
//	}
//
//	fmt.Fprint(os.Stderr, err.Format())
package errors
