// Package textview renders a listing.View as a localized plain-text table.
package textview

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/passin-dev/attendees/pkg/listing"
)

// Message keys. The pt-BR text is the product's own wording.
const (
	keyTitle        = "Attendees"
	keySearch       = "Search: %s"
	keyColID        = "Code"
	keyColAttendee  = "Attendee"
	keyColCreated   = "Registered at"
	keyColCheckIn   = "Checked in at"
	keyNotCheckedIn = "Not checked in"
	keyCount        = "%d of %d"
	keyPage         = "Page %d of %d"
	keyLoading      = "Loading..."
	keyEmpty        = "No attendees found"
	keyFailed       = "Could not load attendees: %s"
	keyStale        = "Showing the last loaded page."
)

var supported = []language.Tag{
	language.BrazilianPortuguese,
	language.AmericanEnglish,
}

var translations = map[language.Tag]map[string]string{
	language.BrazilianPortuguese: {
		keyTitle:        "Participantes",
		keySearch:       "Pesquisa: %s",
		keyColID:        "Código",
		keyColAttendee:  "Participante",
		keyColCreated:   "Data de Inscrição",
		keyColCheckIn:   "Data do Check-In",
		keyNotCheckedIn: "Não fez check-in",
		keyCount:        "%d de %d",
		keyPage:         "Página %d de %d",
		keyLoading:      "Carregando...",
		keyEmpty:        "Nenhum participante encontrado",
		keyFailed:       "Não foi possível carregar os participantes: %s",
		keyStale:        "Exibindo a última página carregada.",
	},
	language.AmericanEnglish: {
		keyTitle:        "Attendees",
		keySearch:       "Search: %s",
		keyColID:        "Code",
		keyColAttendee:  "Attendee",
		keyColCreated:   "Registered at",
		keyColCheckIn:   "Checked in at",
		keyNotCheckedIn: "Not checked in",
		keyCount:        "%d of %d",
		keyPage:         "Page %d of %d",
		keyLoading:      "Loading...",
		keyEmpty:        "No attendees found",
		keyFailed:       "Could not load attendees: %s",
		keyStale:        "Showing the last loaded page.",
	},
}

var dateLayouts = map[language.Tag]string{
	language.BrazilianPortuguese: "02/01/2006 15:04",
	language.AmericanEnglish:     "Jan 2, 2006 3:04 PM",
}

var (
	cat     = newCatalog()
	matcher = language.NewMatcher(supported)
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(supported[0]))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("textview: register %s %q: %v", tag, key, err))
			}
		}
	}
	return b
}

// Renderer writes views in one locale.
type Renderer struct {
	tag      language.Tag
	printer  *message.Printer
	location *time.Location
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLocation sets the time zone dates are shown in. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.location = loc
		}
	}
}

// New returns a Renderer for the closest supported locale to tag.
// Unsupported locales fall back to pt-BR.
func New(tag language.Tag, opts ...Option) *Renderer {
	_, idx, _ := matcher.Match(tag)
	matched := supported[idx]
	r := &Renderer{
		tag:      matched,
		printer:  message.NewPrinter(matched, message.Catalog(cat)),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Language returns the locale the renderer resolved to.
func (r *Renderer) Language() language.Tag {
	return r.tag
}

// Footer returns the "{shown} of {total}" and "Page {page} of {pages}" lines.
func (r *Renderer) Footer(v listing.View) (count, page string) {
	count = r.printer.Sprintf(keyCount, len(v.Attendees), v.Total)
	page = r.printer.Sprintf(keyPage, v.Page, v.PageCount)
	return count, page
}

// CheckIn returns the check-in column text for a view row.
func (r *Renderer) CheckIn(t *time.Time) string {
	if t == nil {
		return r.printer.Sprintf(keyNotCheckedIn)
	}
	return r.date(*t)
}

func (r *Renderer) date(t time.Time) string {
	return t.In(r.location).Format(dateLayouts[r.tag])
}

// Render writes the view as a table with a status line and footer.
func (r *Renderer) Render(w io.Writer, v listing.View) error {
	p := r.printer
	if _, err := p.Fprintln(w, p.Sprintf(keyTitle)); err != nil {
		return err
	}
	if v.Search != "" {
		p.Fprintln(w, p.Sprintf(keySearch, v.Search))
	}

	switch {
	case v.Loading():
		p.Fprintln(w, p.Sprintf(keyLoading))
	case v.State == listing.Failed:
		p.Fprintln(w, p.Sprintf(keyFailed, v.Err))
		if v.RefreshFailed {
			p.Fprintln(w, p.Sprintf(keyStale))
		}
	case v.Empty():
		p.Fprintln(w, p.Sprintf(keyEmpty))
	}

	if len(v.Attendees) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.Sprintf(keyColID), p.Sprintf(keyColAttendee), p.Sprintf(keyColCreated), p.Sprintf(keyColCheckIn))
		for _, a := range v.Attendees {
			fmt.Fprintf(tw, "%s\t%s <%s>\t%s\t%s\n",
				a.ID, a.Name, a.Email, r.date(a.CreatedAt), r.CheckIn(a.CheckedInAt))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	count, page := r.Footer(v)
	_, err := fmt.Fprintf(w, "%s  |  %s\n", count, page)
	return err
}
