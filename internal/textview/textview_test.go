package textview

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/passin-dev/attendees/pkg/attendee"
	"github.com/passin-dev/attendees/pkg/listing"
)

func settledView() listing.View {
	created := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	checked := created.Add(26 * time.Hour)
	return listing.View{
		Page:      2,
		PageCount: 3,
		Total:     25,
		State:     listing.Settled,
		Attendees: []attendee.Attendee{
			{ID: "a1", Name: "Ana Souza", Email: "ana@example.com", CreatedAt: created, CheckedInAt: &checked},
			{ID: "a2", Name: "Bruno Lima", Email: "bruno@example.com", CreatedAt: created},
		},
	}
}

func TestFooterPortuguese(t *testing.T) {
	r := New(language.BrazilianPortuguese)
	count, page := r.Footer(settledView())
	assert.Equal(t, "2 de 25", count)
	assert.Equal(t, "Página 2 de 3", page)
}

func TestFooterGroupsLargeTotals(t *testing.T) {
	v := settledView()
	v.Total = 12345
	v.PageCount = 1235

	count, _ := New(language.BrazilianPortuguese).Footer(v)
	assert.Equal(t, "2 de 12.345", count)

	count, page := New(language.AmericanEnglish).Footer(v)
	assert.Equal(t, "2 of 12,345", count)
	assert.Equal(t, "Page 2 of 1,235", page)
}

func TestLocaleMatching(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"pt-BR", language.BrazilianPortuguese},
		{"pt", language.BrazilianPortuguese},
		{"en-US", language.AmericanEnglish},
		{"en-GB", language.AmericanEnglish},
		{"ja", language.BrazilianPortuguese},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, New(language.MustParse(tt.in)).Language())
		})
	}
}

func TestCheckIn(t *testing.T) {
	r := New(language.BrazilianPortuguese, WithLocation(time.UTC))
	assert.Equal(t, "Não fez check-in", r.CheckIn(nil))

	at := time.Date(2024, 3, 10, 16, 30, 0, 0, time.UTC)
	assert.Equal(t, "10/03/2024 16:30", r.CheckIn(&at))

	en := New(language.AmericanEnglish, WithLocation(time.UTC))
	assert.Equal(t, "Not checked in", en.CheckIn(nil))
	assert.Equal(t, "Mar 10, 2024 4:30 PM", en.CheckIn(&at))
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	v := settledView()
	v.Search = "a"
	require.NoError(t, New(language.BrazilianPortuguese, WithLocation(time.UTC)).Render(&buf, v))

	out := buf.String()
	assert.Contains(t, out, "Participantes\n")
	assert.Contains(t, out, "Pesquisa: a\n")
	assert.Contains(t, out, "Código")
	assert.Contains(t, out, "Data do Check-In")
	assert.Contains(t, out, "Ana Souza <ana@example.com>")
	assert.Contains(t, out, "09/03/2024 14:30")
	assert.Contains(t, out, "10/03/2024 16:30")
	assert.Contains(t, out, "Não fez check-in")
	assert.Contains(t, out, "2 de 25  |  Página 2 de 3\n")
}

func TestRenderStates(t *testing.T) {
	r := New(language.BrazilianPortuguese)

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		v := listing.View{Page: 1, State: listing.Settled, Attendees: []attendee.Attendee{}}
		require.NoError(t, r.Render(&buf, v))
		assert.Contains(t, buf.String(), "Nenhum participante encontrado")
		assert.NotContains(t, buf.String(), "Código")
		assert.Contains(t, buf.String(), "0 de 0")
	})

	t.Run("loading", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, listing.View{Page: 1, State: listing.Fetching}))
		assert.Contains(t, buf.String(), "Carregando...")
	})

	t.Run("failed keeps rows", func(t *testing.T) {
		var buf bytes.Buffer
		v := settledView()
		v.State = listing.Failed
		v.Err = "A101: Network failure"
		v.RefreshFailed = true
		require.NoError(t, r.Render(&buf, v))

		out := buf.String()
		assert.Contains(t, out, "Não foi possível carregar os participantes: A101: Network failure")
		assert.Contains(t, out, "Exibindo a última página carregada.")
		assert.Contains(t, out, "Ana Souza")
	})
}
