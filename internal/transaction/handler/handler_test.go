package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"sigil/internal/transaction/models"
	dErrors "sigil/pkg/domain-errors"
)

type fakeService struct {
	beginStep models.Step
	beginErr  error
	emailStep models.Step
	codeStep  models.Step
	supported []string
	lastToken string
	lastEmail string
	lastCode  string
}

func (f *fakeService) Begin(_ context.Context, appID, appPassword string) (models.Step, error) {
	return f.beginStep, f.beginErr
}

func (f *fakeService) SubmitEmail(_ context.Context, token, email string) models.Step {
	f.lastToken, f.lastEmail = token, email
	return f.emailStep
}

func (f *fakeService) SubmitCode(_ context.Context, token, code string) models.Step {
	f.lastToken, f.lastCode = token, code
	return f.codeStep
}

func (f *fakeService) RequestDomainSupport(_ context.Context, email, domain string) {
	f.supported = append(f.supported, email+"/"+domain)
}

func newRouter(svc *fakeService) *chi.Mux {
	router := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(router)
	return router
}

func post(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeStep(t *testing.T, rec *httptest.ResponseRecorder) models.Step {
	t.Helper()
	var step models.Step
	if err := json.NewDecoder(rec.Body).Decode(&step); err != nil {
		t.Fatalf("decode step: %v", err)
	}
	return step
}

func TestHandleBegin(t *testing.T) {
	svc := &fakeService{beginStep: models.NeedEmail("app-1tok", false)}
	router := newRouter(svc)

	rec := post(t, router, "/badges/transactions", map[string]string{
		"app_id": "app-1", "app_password": "hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	step := decodeStep(t, rec)
	if step.Kind != models.StepNeedEmail || step.Token != "app-1tok" {
		t.Fatalf("unexpected step: %+v", step)
	}
}

func TestHandleBeginUnauthorized(t *testing.T) {
	svc := &fakeService{beginErr: dErrors.New(dErrors.CodeUnauthorized, "unknown application or bad credentials")}
	router := newRouter(svc)

	rec := post(t, router, "/badges/transactions", map[string]string{
		"app_id": "app-1", "app_password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleBeginMalformedBody(t *testing.T) {
	router := newRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/badges/transactions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSubmitEmail(t *testing.T) {
	svc := &fakeService{emailStep: models.NeedCode("app-1tok", false)}
	router := newRouter(svc)

	rec := post(t, router, "/badges/credentials", map[string]string{
		"token": "app-1tok", "email": "grace@apple.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastToken != "app-1tok" || svc.lastEmail != "grace@apple.com" {
		t.Fatalf("service saw token=%q email=%q", svc.lastToken, svc.lastEmail)
	}
	if step := decodeStep(t, rec); step.Kind != models.StepNeedCode {
		t.Fatalf("unexpected step: %+v", step)
	}
}

func TestHandleSubmitCode(t *testing.T) {
	svc := &fakeService{codeStep: models.Terminal(models.OutcomeGranted)}
	router := newRouter(svc)

	rec := post(t, router, "/badges/verify", map[string]string{
		"token": "app-1tok", "code": "abc123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	step := decodeStep(t, rec)
	if step.Kind != models.StepTerminal || step.Outcome != models.OutcomeGranted {
		t.Fatalf("unexpected step: %+v", step)
	}
}

func TestHandleSupportRequest(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)

	rec := post(t, router, "/badges/support-request", map[string]string{
		"email": "grace@smallco.example", "domain": "smallco.example",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(svc.supported) != 1 || svc.supported[0] != "grace@smallco.example/smallco.example" {
		t.Fatalf("service saw %v", svc.supported)
	}
}
