package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleda/internal/config"
	"fleda/internal/models"
	"fleda/internal/syncer"
)

const testSecret = "s3cret"

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeRunner struct {
	result *syncer.Result
	err    error
	calls  int
	cfg    config.SyncConfig
}

func (f *fakeRunner) Sync(_ context.Context, cfg config.SyncConfig) (*syncer.Result, error) {
	f.calls++
	f.cfg = cfg
	return f.result, f.err
}

type fakeReader struct {
	events []models.CalendarEvent
	detail map[string]*models.ProgramEventDetail
}

func (f *fakeReader) CalendarEvents(context.Context) []models.CalendarEvent { return f.events }

func (f *fakeReader) EventBySlug(_ context.Context, slug string) *models.ProgramEventDetail {
	return f.detail[slug]
}

type fixture struct {
	router  *gin.Engine
	runner  *fakeRunner
	reader  *fakeReader
	loadErr error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	prague, err := time.LoadLocation("Europe/Prague")
	require.NoError(t, err)

	label := "Hlavní"
	f := &fixture{
		runner: &fakeRunner{result: &syncer.Result{
			Calendars: []syncer.CalendarSummary{{ID: "main", Label: &label, Imported: 3}},
			Imported:  3,
			Mutations: 6,
			Window:    syncer.WindowSummary{TimeMin: "2026-01-24T12:00:00Z", TimeMax: "2027-04-14T12:00:00Z"},
		}},
		reader: &fakeReader{
			events: []models.CalendarEvent{
				{ID: "e1", Slug: "koncert", Date: "2026-03-14", Time: "20:00", Title: "Koncert", Venue: models.VenueFleda},
				{ID: "e2", Slug: "jam", Date: "2026-03-12", Time: "19:00", Title: "Jam", Venue: models.VenueBar},
				{ID: "e3", Slug: "vernisaz", Date: "2026-04-02", Title: "Vernisáž", Venue: models.VenueGalerie},
			},
			detail: map[string]*models.ProgramEventDetail{
				"koncert": {CalendarEvent: models.CalendarEvent{ID: "e1", Slug: "koncert", Date: "2026-03-14", Time: "20:00", Title: "Koncert", Venue: models.VenueFleda}},
			},
		},
	}

	f.router = NewRouter(Deps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: config.Config{SyncSecret: testSecret, Location: prague},
		LoadSync: func() (config.SyncConfig, error) {
			if f.loadErr != nil {
				return config.SyncConfig{}, f.loadErr
			}
			return config.SyncConfig{Sources: []config.CalendarSource{{ID: "main"}}}, nil
		},
		Syncer:  f.runner,
		Program: f.reader,
		Now:     func() time.Time { return testNow },
	})
	gin.SetMode(gin.TestMode)
	return f
}

func (f *fixture) do(method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestSync_Unauthorized(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/integrations/google-calendar/sync", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Unauthorized"}`, w.Body.String())
	assert.Zero(t, f.runner.calls)
}

func TestSync_Success(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := f.do(method, "/api/integrations/google-calendar/sync?secret="+testSecret, nil)
		require.Equal(t, http.StatusOK, w.Code, method)
		assert.JSONEq(t, `{
			"ok": true,
			"calendars": [{"id": "main", "label": "Hlavní", "venue": null, "imported": 3}],
			"imported": 3,
			"mutations": 6,
			"window": {"timeMin": "2026-01-24T12:00:00Z", "timeMax": "2027-04-14T12:00:00Z"}
		}`, w.Body.String())
	}
	assert.Equal(t, 2, f.runner.calls)
	assert.Equal(t, "main", f.runner.cfg.Sources[0].ID)
}

func TestSync_ConfigError(t *testing.T) {
	f := newFixture(t)
	f.loadErr = config.ErrNoCalendarSources

	w := f.do(http.MethodPost, "/api/integrations/google-calendar/sync", map[string]string{"X-Sync-Secret": testSecret})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"missing GOOGLE_CALENDAR_ID or GOOGLE_CALENDARS_JSON"}`, w.Body.String())
	assert.Zero(t, f.runner.calls)
}

func TestSync_RunError(t *testing.T) {
	f := newFixture(t)
	f.runner.result = nil
	f.runner.err = errors.New("google calendar events fetch failed for main (403): forbidden")

	w := f.do(http.MethodPost, "/api/integrations/google-calendar/sync", map[string]string{"Authorization": "bearer " + testSecret})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"google calendar events fetch failed for main (403): forbidden"}`, w.Body.String())
}

func TestProgram_DefaultMonth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/program", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Months []string               `json:"months"`
		Month  string                 `json:"month"`
		Events []models.CalendarEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"2026-03", "2026-04"}, body.Months)
	assert.Equal(t, "2026-03", body.Month)
	require.Len(t, body.Events, 2)
	assert.Equal(t, "e2", body.Events[0].ID, "events are sorted by date")
	assert.Equal(t, "e1", body.Events[1].ID)
}

func TestProgram_MonthAndVenue(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/program?month=2026-03&venue=fleda", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"koncert"`)
	assert.NotContains(t, w.Body.String(), `"slug":"jam"`)

	w = f.do(http.MethodGet, "/api/program?month=2026-05", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"events":[]`)

	w = f.do(http.MethodGet, "/api/program?venue=lucerna", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgram_Detail(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/program/koncert", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"e1","slug":"koncert","date":"2026-03-14","time":"20:00","title":"Koncert","venue":"fleda"}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/program/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestFeed(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/program.ics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar"))
	body := w.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Equal(t, 3, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:Koncert")
}
