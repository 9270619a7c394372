package web

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/ics"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
)

func TestEvents_OccurrencesExpandRecurrence(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodPost, "/api/events", "maria", model.ScheduleEvent{
		ID:         "rehearsal",
		Title:      "Thursday rehearsal",
		Date:       "2026-03-05",
		Time:       "19:30",
		Kind:       model.EventRehearsal,
		Recurrence: "FREQ=WEEKLY;BYDAY=TH",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/events", "maria", model.ScheduleEvent{
		ID:    "easter",
		Title: "Easter Vigil",
		Date:  "2026-04-04",
		Kind:  model.EventMass,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/events/occurrences?from=2026-03-01&to=2026-03-31", "maria", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[ics.ExpandResult](t, resp)
	require.Len(t, got.Occurrences, 4)
	for _, occ := range got.Occurrences {
		assert.Equal(t, "rehearsal", occ.EventID)
	}

	resp = env.do(t, http.MethodGet, "/api/events/occurrences?from=2026-04-01&to=2026-04-05", "maria", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[ics.ExpandResult](t, resp)
	require.Len(t, got.Occurrences, 2)
	assert.Equal(t, "rehearsal", got.Occurrences[0].EventID)
	assert.Equal(t, "easter", got.Occurrences[1].EventID)
}

func TestEvents_OccurrencesRejectsBadWindow(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	for _, q := range []string{"from=yesterday", "to=2026-13-01", "from=2026-01-01&to=2028-01-01"} {
		resp := env.do(t, http.MethodGet, "/api/events/occurrences?"+q, "maria", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestEvents_ICSExport(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodPost, "/api/events", "maria", model.ScheduleEvent{
		ID: "council", Title: "Parish council", Date: "2026-03-12", Time: "17:00", Kind: model.EventMeeting,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/events.ics", "maria", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(body), "BEGIN:VEVENT"))
	assert.Contains(t, string(body), "UID:council@choirdesk")
	assert.Contains(t, string(body), "SUMMARY:Parish council")
}

func TestEvents_UpdateMissingIs404(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodPut, "/api/events/ghost", "maria", model.ScheduleEvent{Title: "Ghost", Date: "2026-03-01"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
