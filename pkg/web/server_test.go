package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sbomtools/vulnrank/pkg/model"
)

const analyzeBody = `{
  "components": [
    {"purl": "pkg:npm/app@1.0.0", "name": "app", "version": "1.0.0", "ecosystem": "npm"},
    {"purl": "pkg:npm/lib@2.1.0", "name": "lib", "version": "2.1.0", "ecosystem": "npm"}
  ],
  "edges": [{"parent": "pkg:npm/app@1.0.0", "child": "pkg:npm/lib@2.1.0"}],
  "roots": ["pkg:npm/app@1.0.0"],
  "vulnerabilities": [
    {"id": "CVE-2024-2222", "components": ["pkg:npm/lib@2.1.0"], "severity": {"value": 8.1, "known": true}}
  ]
}`

func stubAnalyze(inv model.Inventory) (*model.Report, error) {
	return &model.Report{
		GeneratedAt:          time.Now(),
		Records:              []model.ScoreRecord{{Component: "pkg:npm/lib@2.1.0", Vulnerability: "CVE-2024-2222", Rank: 1}},
		TotalComponents:      len(inv.Components),
		TotalVulnerabilities: len(inv.Vulnerabilities),
	}, nil
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := NewServer(stubAnalyze)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(analyzeBody))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report model.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.ID == "" {
		t.Error("Expected a generated report id")
	}
	if report.TotalComponents != 2 {
		t.Errorf("Expected 2 components, got %d", report.TotalComponents)
	}
	if len(report.Records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(report.Records))
	}
}

func TestAnalyzeRejectsInvalidInventory(t *testing.T) {
	s := NewServer(stubAnalyze)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"components": []}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no components") {
		t.Errorf("Expected validation message, got %s", rec.Body.String())
	}
}

func TestAnalyzeIntegrityFailure(t *testing.T) {
	failing := func(inv model.Inventory) (*model.Report, error) {
		return nil, &model.IntegrityError{Kind: "edge", Reference: "pkg:npm/app@1.0.0", Missing: "pkg:npm/ghost@1.0.0"}
	}
	s := NewServer(failing)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(analyzeBody))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rec.Code)
	}
}

func TestReportListingAndRetrieval(t *testing.T) {
	s := NewServer(stubAnalyze)

	// Two runs, then list
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(analyzeBody))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Analyze %d failed: %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/reports", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var summaries []model.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("Failed to decode summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/reports/%s", summaries[0].ID), nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for stored report, got %d", rec.Code)
	}
	var report model.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.ID != summaries[0].ID {
		t.Errorf("Expected report %s, got %s", summaries[0].ID, report.ID)
	}
}

func TestUnknownReportReturns404(t *testing.T) {
	s := NewServer(stubAnalyze)

	req := httptest.NewRequest("GET", "/api/reports/no-such-id", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	s := NewServer(stubAnalyze)

	req := httptest.NewRequest("GET", "/api/reports", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header on response")
	}
}
