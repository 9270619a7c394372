package web

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/ordo"
)

func TestOrdo_Month(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodGet, "/api/ordo?month=2&year=2026", "maria", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[ordoResponse](t, resp)
	assert.Equal(t, 2, got.Month)
	assert.Equal(t, 2026, got.Year)
	require.Len(t, got.Days, 28)
	assert.Equal(t, ordo.GetOrdoForMonth(2, 2026), got.Days)
}

func TestOrdo_RejectsBadMonth(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	for _, q := range []string{
		"month=0&year=2026", "month=13&year=2026", "month=3&year=12",
		"month=abc", "month=3&year=20x6",
	} {
		resp := env.do(t, http.MethodGet, "/api/ordo?"+q, "maria", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestOrdoICS_Month(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodGet, "/api/ordo.ics?year=2026&month=4", "maria", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ordo-2026-04.ics")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 30, strings.Count(string(body), "BEGIN:VEVENT"))
	assert.Contains(t, string(body), "UID:ordo-2026-04-05@choirdesk")
}

func TestOrdoICS_YearRequired(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodGet, "/api/ordo.ics", "maria", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPrintOrdo(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodGet, "/print/ordo?month=12&year=2026", "maria", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	assert.Contains(t, page, `data-ready="true"`)
	assert.Contains(t, page, "December 2026")
	assert.Contains(t, page, "St. Anne Choir")
	assert.Contains(t, page, "2026-12-25")
}
