package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

func testRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/import", h.Import)
	r.POST("/api/process", h.Process)
	return r
}

func TestImportRequiresJobsOrSales(t *testing.T) {
	h := &Handler{Logger: zerolog.Nop()}
	r := testRouter(h)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INVALID_REQUEST") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestImportRejectsNonCSV(t *testing.T) {
	h := &Handler{Logger: zerolog.Nop()}
	r := testRouter(h)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("jobs", "jobs.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("not a csv")); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "must be a .csv file") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestProcessRejectsBadAsOfDate(t *testing.T) {
	h := &Handler{Validator: validator.New(), Logger: zerolog.Nop()}
	r := testRouter(h)

	req, _ := http.NewRequest(http.MethodPost, "/api/process?as_of=03-10-2025", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestValidateExt(t *testing.T) {
	if !validateExt("jobs.CSV") {
		t.Fatalf("expected uppercase extension to pass")
	}
	if validateExt("jobs.xlsx") || validateExt("jobs") {
		t.Fatalf("expected non-csv names to fail")
	}
}
