package form

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/formbot/internal/metrics"
	"github.com/ivanoskov/formbot/internal/model"
)

func testRecord() model.Record {
	return model.Record{
		Type:        "Entrada",
		Amount:      decimal.RequireFromString("150.50"),
		Category:    "Salário",
		Description: "x",
		Date:        "15/07/2025",
	}
}

func configuredMapping(submitURL string) FieldMapping {
	return NewMapping(submitURL, map[model.Field]string{
		model.FieldType:        "entry.66743101",
		model.FieldAmount:      "entry.1144554732",
		model.FieldCategory:    "entry.1201304056",
		model.FieldDescription: "entry.101816972",
		model.FieldDate:        "entry.385057229",
	})
}

func TestBuildPayload(t *testing.T) {
	m := configuredMapping("")
	m, err := m.With(map[string]string{"description": ""})
	require.NoError(t, err)

	rec := testRecord()
	rec.Date = ""
	payload := BuildPayload(rec, m)

	assert.Equal(t, "Entrada", payload.Get("entry.66743101"))
	assert.Equal(t, "150.5", payload.Get("entry.1144554732"))
	assert.Equal(t, "Salário", payload.Get("entry.1201304056"))
	assert.NotContains(t, payload, "entry.101816972", "empty binding is skipped")
	assert.NotContains(t, payload, "entry.385057229", "empty value is skipped")
}

func TestSubmit_UnconfiguredMappingSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	before := testutil.ToFloat64(metrics.Submissions.WithLabelValues(metrics.OutcomeSimulated))

	s := NewSubmitter("https://example.com/viewform", srv.Client(), nil)
	res := s.Submit(context.Background(), testRecord(), DefaultMapping(srv.URL))

	assert.True(t, res.OK)
	assert.True(t, res.Simulated)
	assert.Equal(t, int32(0), hits.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Submissions.WithLabelValues(metrics.OutcomeSimulated)))
}

type capturedRequest struct {
	method string
	header http.Header
	form   url.Values
}

func TestSubmit_SendsFormEncodedRequest(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		captured <- capturedRequest{method: r.Method, header: r.Header.Clone(), form: r.PostForm}
		w.Write([]byte("Sua resposta foi registrada."))
	}))
	defer srv.Close()

	s := NewSubmitter("https://docs.google.com/forms/d/e/abc/viewform", srv.Client(), nil)
	res := s.Submit(context.Background(), testRecord(), configuredMapping(srv.URL+"/submit"))

	require.True(t, res.OK)
	assert.False(t, res.Simulated)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "body_recorded_pt", res.Indicator)

	got := <-captured
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/x-www-form-urlencoded", got.header.Get("Content-Type"))
	assert.Equal(t, UserAgent, got.header.Get("User-Agent"))
	assert.Equal(t, "https://docs.google.com/forms/d/e/abc/viewform", got.header.Get("Referer"))
	assert.Equal(t, "Entrada", got.form.Get("entry.66743101"))
	assert.Equal(t, "150.5", got.form.Get("entry.1144554732"))
	assert.Equal(t, "15/07/2025", got.form.Get("entry.385057229"))
}

func TestSubmit_FollowsRedirectToConfirmation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/d/e/abc/formResponse", http.StatusSeeOther)
	})
	mux.HandleFunc("/d/e/abc/formResponse", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewSubmitter("", srv.Client(), nil)
	res := s.Submit(context.Background(), testRecord(), configuredMapping(srv.URL+"/post"))

	require.True(t, res.OK)
	assert.Equal(t, srv.URL+"/d/e/abc/formResponse", res.FinalURL)
	assert.Equal(t, "url_contains_form_response", res.Indicator)
}

func TestSubmit_OKWithoutIndicatorIsStillSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>something else</html>"))
	}))
	defer srv.Close()

	before := testutil.ToFloat64(metrics.Submissions.WithLabelValues(metrics.OutcomeUnconfirmed))

	s := NewSubmitter("", srv.Client(), nil)
	res := s.Submit(context.Background(), testRecord(), configuredMapping(srv.URL+"/other"))

	assert.True(t, res.OK)
	assert.Empty(t, res.Indicator)
	assert.NoError(t, res.Err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Submissions.WithLabelValues(metrics.OutcomeUnconfirmed)))
}

func TestSubmit_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Your response has been recorded"))
	}))
	defer srv.Close()

	s := NewSubmitter("", srv.Client(), nil)
	res := s.Submit(context.Background(), testRecord(), configuredMapping(srv.URL+"/formResponse"))

	assert.False(t, res.OK)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Error(t, res.Err)
}

func TestSubmit_TransportErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL + "/formResponse"
	srv.Close()

	before := testutil.ToFloat64(metrics.Submissions.WithLabelValues(metrics.OutcomeTransportError))

	s := NewSubmitter("", nil, nil)
	res := s.Submit(context.Background(), testRecord(), configuredMapping(target))

	assert.False(t, res.OK)
	assert.Zero(t, res.StatusCode)
	assert.Error(t, res.Err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Submissions.WithLabelValues(metrics.OutcomeTransportError)))
}

func TestSubmit_TimeoutFails(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := NewSubmitter("", &http.Client{Timeout: 50 * time.Millisecond}, nil)
	res := s.Submit(context.Background(), testRecord(), configuredMapping(srv.URL+"/formResponse"))

	assert.False(t, res.OK)
	assert.Error(t, res.Err)
}
