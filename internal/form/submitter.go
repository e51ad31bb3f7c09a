package form

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ivanoskov/formbot/internal/metrics"
	"github.com/ivanoskov/formbot/internal/model"
)

const (
	// DefaultTimeout bounds a single submission request.
	DefaultTimeout = 10 * time.Second

	// UserAgent is sent with every request so Google serves the regular form.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxBodyBytes = 4 << 20
)

// Indicator is one piece of evidence that Google recorded a response.
type Indicator struct {
	Name  string
	Match func(finalURL, body string) bool
}

// SuccessIndicators are evaluated in order against a 200 response. They are a
// loose reading of Google's confirmation page, not a contract: a 200 that
// matches none of them is still treated as success.
var SuccessIndicators = []Indicator{
	{Name: "url_contains_form_response", Match: func(u, _ string) bool { return strings.Contains(u, "formResponse") }},
	{Name: "body_recorded_en", Match: func(_, b string) bool { return strings.Contains(b, "Your response has been recorded") }},
	{Name: "body_recorded_pt", Match: func(_, b string) bool { return strings.Contains(b, "Sua resposta foi registrada") }},
	{Name: "url_ends_with_form_response", Match: func(u, _ string) bool { return strings.HasSuffix(u, "/formResponse") }},
}

// Result is the classified outcome of a submission.
type Result struct {
	OK         bool
	Simulated  bool   // mapping unconfigured, nothing was sent
	StatusCode int    // 0 when no response was received
	FinalURL   string // URL after redirects
	Indicator  string // first matching success indicator, if any
	Err        error
}

// Submitter posts records to a Google Form.
type Submitter struct {
	client  *http.Client
	formURL string
	logger  *slog.Logger
}

// NewSubmitter creates a submitter. formURL is the form's viewing URL and is
// sent as Referer. A nil client gets one with DefaultTimeout.
func NewSubmitter(formURL string, client *http.Client, logger *slog.Logger) *Submitter {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{client: client, formURL: formURL, logger: logger}
}

// BuildPayload maps every present value with a non-empty binding to its entry ID.
func BuildPayload(rec model.Record, m FieldMapping) url.Values {
	payload := url.Values{}
	for _, f := range model.Fields {
		id := m.Entry(f)
		v := rec.Value(f)
		if id == "" || v == "" {
			continue
		}
		payload.Set(id, v)
	}
	return payload
}

// Submit sends rec to the form described by m and classifies the response.
// There is no retry: a transport error is reported as a failed Result.
func (s *Submitter) Submit(ctx context.Context, rec model.Record, m FieldMapping) Result {
	if m.Unconfigured() {
		s.logger.Warn("form field IDs are not configured, simulating success",
			"hint", "run `formbot inspect` and set FORM_MAPPING_FILE")
		metrics.Submissions.WithLabelValues(metrics.OutcomeSimulated).Inc()
		return Result{OK: true, Simulated: true}
	}

	payload := BuildPayload(rec, m)
	s.logger.Debug("prepared form payload", "payload", payload.Encode(), "submit_url", m.SubmitURL)

	start := time.Now()
	res := s.post(ctx, m.SubmitURL, payload)
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
	return res
}

func (s *Submitter) post(ctx context.Context, submitURL string, payload url.Values) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, strings.NewReader(payload.Encode()))
	if err != nil {
		return s.transportFailure(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", s.formURL)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.transportFailure(fmt.Errorf("failed to submit form: %w", err))
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("form submission rejected", "status", resp.StatusCode, "final_url", finalURL)
		metrics.Submissions.WithLabelValues(metrics.OutcomeHTTPError).Inc()
		return Result{
			StatusCode: resp.StatusCode,
			FinalURL:   finalURL,
			Err:        fmt.Errorf("form endpoint returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		// status alone is enough to call it a success
		s.logger.Warn("failed to read form response body", "error", err)
	}

	res := Result{OK: true, StatusCode: resp.StatusCode, FinalURL: finalURL}
	if ind, ok := matchIndicator(finalURL, string(body)); ok {
		res.Indicator = ind
		s.logger.Info("form submitted", "indicator", ind, "final_url", finalURL)
		metrics.Submissions.WithLabelValues(metrics.OutcomeConfirmed).Inc()
		return res
	}

	s.logger.Warn("form returned 200 without a confirmation marker, assuming success", "final_url", finalURL)
	metrics.Submissions.WithLabelValues(metrics.OutcomeUnconfirmed).Inc()
	return res
}

func (s *Submitter) transportFailure(err error) Result {
	s.logger.Error("form submission failed", "error", err)
	metrics.Submissions.WithLabelValues(metrics.OutcomeTransportError).Inc()
	return Result{Err: err}
}

func matchIndicator(finalURL, body string) (string, bool) {
	for _, ind := range SuccessIndicators {
		if ind.Match(finalURL, body) {
			return ind.Name, true
		}
	}
	return "", false
}
