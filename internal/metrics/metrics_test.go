package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCanonicalPath(t *testing.T) {
	tests := map[string]string{
		"":                        "/",
		"/":                       "/",
		"/health":                 "/health",
		"/api/ordo":               "/api/ordo",
		"/api/members/3f2a":       "/api/members/:id",
		"/api/events/occurrences": "/api/events/occurrences",
		"/api/ledger/summary":     "/api/ledger/summary",
		"/print/ordo":             "/print/ordo",
	}
	for in, want := range tests {
		assert.Equal(t, want, canonicalPath(in), in)
	}
}

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/songs/s1", nil))

	assert.Contains(t, scrape(t), `choirdesk_http_requests_total{method="GET",path="/api/songs/:id",status="418"} 1`)
}

func TestRecorders(t *testing.T) {
	RecordMutation("members", "insert", "committed")
	RecordRemoteChange("songs", false)
	RecordFeedImport("", true)
	RecordAssistant("ok", 0)

	out := scrape(t)
	assert.Contains(t, out, `choirdesk_store_mutations_total{op="insert",outcome="committed",table="members"} 1`)
	assert.Contains(t, out, `choirdesk_store_remote_changes_total{result="dropped",table="songs"} 1`)
	assert.Contains(t, out, `choirdesk_feeds_imports_total{feed="unknown",success="true"} 1`)
	assert.Contains(t, out, `choirdesk_assistant_requests_total{outcome="ok"} 1`)
}
