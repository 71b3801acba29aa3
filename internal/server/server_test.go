package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"autolearner-go/internal/learner"
	"autolearner-go/internal/model"
)

type stubService struct {
	state      learner.State
	reloadErr  error
	submitErr  error
	historyErr error
	receipt    *model.Receipt
	history    []*model.Submission

	submitted    []string
	historyLimit int
}

func (s *stubService) Snapshot() learner.State { return s.state }

func (s *stubService) Material(id string) (*model.Material, bool) {
	for _, m := range s.state.Materials {
		if m.Record.ID == id {
			return m, true
		}
	}
	return nil, false
}

func (s *stubService) Reload(context.Context) ([]*model.Material, error) {
	if s.reloadErr != nil {
		return nil, s.reloadErr
	}
	return s.state.Materials, nil
}

func (s *stubService) Submit(_ context.Context, source string) (*model.Receipt, error) {
	s.submitted = append(s.submitted, source)
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.receipt, nil
}

func (s *stubService) History(limit int) ([]*model.Submission, error) {
	s.historyLimit = limit
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return s.history, nil
}

func readyService() *stubService {
	return &stubService{
		state: learner.State{
			Status:   model.StatusReady,
			Identity: "0xA1",
			LoadedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Materials: []*model.Material{
				{
					Record: model.ContentRecord{
						ID: "3", Owner: "0xA1", SourceReference: "https://b.example",
						Processed: true, FlashcardReference: "bafyflash",
						SubmittedAt: time.Unix(1700000100, 0).UTC(),
					},
					Flashcards: model.FlashcardSet{{Front: "Q", Back: "A"}},
					AudioURL:   "https://gateway.test/ipfs/bafyaudio",
				},
				{
					Record: model.ContentRecord{
						ID: "1", Owner: "0xA1", SourceReference: "https://a.example",
						SubmittedAt: time.Unix(1700000000, 0).UTC(),
					},
				},
			},
		},
		receipt: &model.Receipt{TxHash: "0xabc", BlockNumber: 7, GasUsed: 21000, RecordID: "4"},
	}
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return out
}

func newTestRouter(svc Service, origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{Service: svc, Logger: learner.NewNopLogger(), AllowedOrigins: origins})
}

func TestHealthCheck(t *testing.T) {
	w := do(t, newTestRouter(readyService()), http.MethodGet, "/healthcheck", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestListRecords(t *testing.T) {
	w := do(t, newTestRouter(readyService()), http.MethodGet, "/api/records", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	got := decode[StateResponse](t, w)
	if got.Status != "ready" || got.Identity != "0xA1" {
		t.Errorf("status/identity = %q/%q", got.Status, got.Identity)
	}
	if len(got.Materials) != 2 || got.Materials[0].ID != "3" || got.Materials[1].ID != "1" {
		t.Fatalf("materials = %+v", got.Materials)
	}
	first := got.Materials[0]
	if !first.Processed || first.FlashcardsCID != "bafyflash" || len(first.Flashcards) != 1 {
		t.Errorf("first material = %+v", first)
	}
	if first.Timestamp != 1700000100 {
		t.Errorf("Timestamp = %d", first.Timestamp)
	}
	if got.LoadedAt == nil {
		t.Error("LoadedAt missing")
	}
}

func TestListRecords_Failed(t *testing.T) {
	svc := &stubService{state: learner.State{
		Status:   model.StatusFailed,
		Identity: "0xA1",
		Err:      fmt.Errorf("%w: rpc down", learner.ErrLedgerRead),
	}}

	got := decode[StateResponse](t, do(t, newTestRouter(svc), http.MethodGet, "/api/records", ""))
	if got.Status != "failed" {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if !strings.Contains(got.Error, "rpc down") {
		t.Errorf("Error = %q", got.Error)
	}
	if got.Materials == nil || len(got.Materials) != 0 {
		t.Errorf("Materials = %v, want empty list", got.Materials)
	}
}

func TestGetRecord(t *testing.T) {
	r := newTestRouter(readyService())

	w := do(t, r, http.MethodGet, "/api/records/3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decode[MaterialResponse](t, w); got.AudioURL != "https://gateway.test/ipfs/bafyaudio" {
		t.Errorf("AudioURL = %q", got.AudioURL)
	}

	w = do(t, r, http.MethodGet, "/api/records/99", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if env := decode[ErrorEnvelope](t, w); env.Error.Code != "record_not_found" {
		t.Errorf("code = %q", env.Error.Code)
	}
}

func TestReload(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"no identity", learner.ErrUnauthenticated, http.StatusConflict},
		{"ledger failure", fmt.Errorf("%w: timeout", learner.ErrLedgerRead), http.StatusBadGateway},
		{"other failure", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := readyService()
			svc.reloadErr = tt.err
			w := do(t, newTestRouter(svc), http.MethodPost, "/api/records/reload", "")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"success", `{"sourceURI":"https://c.example"}`, nil, http.StatusCreated, ""},
		{"malformed body", `{`, nil, http.StatusBadRequest, "invalid_request"},
		{"no identity", `{"sourceURI":"https://c.example"}`, learner.ErrUnauthenticated, http.StatusUnauthorized, "no_identity"},
		{"blank source", `{"sourceURI":"  "}`, learner.ErrInvalidSource, http.StatusBadRequest, "invalid_source"},
		{"ledger rejection", `{"sourceURI":"https://c.example"}`, fmt.Errorf("%w: reverted", learner.ErrLedgerWrite), http.StatusBadGateway, "ledger_write_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := readyService()
			svc.submitErr = tt.err
			w := do(t, newTestRouter(svc), http.MethodPost, "/api/submissions", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if env := decode[ErrorEnvelope](t, w); env.Error.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", env.Error.Code, tt.wantCode)
				}
				return
			}
			got := decode[ReceiptResponse](t, w)
			if got.TxHash != "0xabc" || got.RecordID != "4" || got.BlockNumber != 7 {
				t.Errorf("receipt = %+v", got)
			}
			if len(svc.submitted) != 1 || svc.submitted[0] != "https://c.example" {
				t.Errorf("submitted = %v", svc.submitted)
			}
		})
	}
}

func TestListSubmissions(t *testing.T) {
	svc := readyService()
	svc.history = []*model.Submission{{
		ID: "sub-1", Owner: "0xA1", SourceReference: "https://c.example",
		TxHash: "0xabc", RecordID: "4", SubmittedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
	r := newTestRouter(svc)

	t.Run("default limit", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/api/submissions", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if svc.historyLimit != defaultHistoryLimit {
			t.Errorf("limit = %d, want %d", svc.historyLimit, defaultHistoryLimit)
		}
		got := decode[struct {
			Submissions []SubmissionResponse `json:"submissions"`
		}](t, w)
		if len(got.Submissions) != 1 || got.Submissions[0].ID != "sub-1" {
			t.Errorf("submissions = %+v", got.Submissions)
		}
	})

	t.Run("explicit limit", func(t *testing.T) {
		do(t, r, http.MethodGet, "/api/submissions?limit=5", "")
		if svc.historyLimit != 5 {
			t.Errorf("limit = %d, want 5", svc.historyLimit)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, q := range []string{"0", "-1", "abc"} {
			w := do(t, r, http.MethodGet, "/api/submissions?limit="+q, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: status = %d, want 400", q, w.Code)
			}
		}
	})

	t.Run("no identity", func(t *testing.T) {
		svc := &stubService{historyErr: learner.ErrUnauthenticated}
		w := do(t, newTestRouter(svc), http.MethodGet, "/api/submissions", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestCORS(t *testing.T) {
	r := newTestRouter(readyService(), "http://localhost:3000")

	req := httptest.NewRequest(http.MethodOptions, "/api/records", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/records", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q for disallowed origin", got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", newTestRouter(readyService()), learner.NewNopLogger())
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
