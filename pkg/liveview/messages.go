package liveview

import (
	"github.com/passin-dev/attendees/pkg/listing"
)

// Server message types.
const (
	TypeView  = "view"
	TypeURL   = "url"
	TypeError = "error"
)

// Client command types. first, previous, next and last are the
// pagination actions.
const (
	CmdSearch   = "search"
	CmdPage     = "page"
	CmdRefresh  = "refresh"
	CmdPopState = "popstate"
)

// ServerMessage is sent to the browser.
//
//	{"type":"view","view":{...}}
//	{"type":"url","mode":"replace","url":"/attendees?search=ana&page=1"}
//	{"type":"error","error":"unknown command \"jump\""}
type ServerMessage struct {
	Type  string        `json:"type"`
	View  *listing.View `json:"view,omitempty"`
	Mode  string        `json:"mode,omitempty"`
	URL   string        `json:"url,omitempty"`
	Error string        `json:"error,omitempty"`
}

// ClientMessage is a command from the browser. Value carries the search
// term, the page number or, for popstate, the URL the browser moved to.
type ClientMessage struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}
