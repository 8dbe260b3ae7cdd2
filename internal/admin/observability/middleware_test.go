package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(RequestLogger(logger))
	router.Get("/admin/{module}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handler ran")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/customers", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "handler ran", entries[0].Message)
	require.NotEmpty(t, entries[0].ContextMap()["request_id"])

	done := entries[1].ContextMap()
	require.Equal(t, "request completed", entries[1].Message)
	require.Equal(t, zap.WarnLevel, entries[1].Level)
	require.Equal(t, "/admin/{module}", done["route"])
	require.EqualValues(t, http.StatusTeapot, done["status"])
}

func TestRecovererAnswers500(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := RequestLogger(zap.New(core))(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 2, logs.FilterMessage("panic recovered").Len()+logs.FilterMessage("request completed").Len())
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	require.NotNil(t, FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("chatty")
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zap.DebugLevel))
	require.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	require.Equal(t, "/adminx", sanitize("/admin\n\x00x", 20))
	require.Equal(t, "/ad", sanitize("/admin", 3))
}
