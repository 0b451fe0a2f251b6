package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sbomtools/vulnrank/pkg/inventory"
	"github.com/sbomtools/vulnrank/pkg/logging"
	"github.com/sbomtools/vulnrank/pkg/model"
	"github.com/sbomtools/vulnrank/pkg/pubsub"
)

// AnalyzeFunc runs one analysis over an inventory and returns the report.
type AnalyzeFunc func(inv model.Inventory) (*model.Report, error)

// Server exposes the analysis engine over HTTP
type Server struct {
	router    *mux.Router
	publisher pubsub.Publisher
	analyze   AnalyzeFunc

	mu      sync.RWMutex
	reports map[string]*model.Report
	order   []string // report ids, oldest first
}

// NewServer creates a new web server around an analysis function
func NewServer(analyze AnalyzeFunc) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// analysis_status: buffer last 10 events, replay only the current state
	// to new subscribers
	ssePublisher.ConfigureTopic(pubsub.TopicAnalysis, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		analyze:   analyze,
		reports:   make(map[string]*model.Report),
	}
	s.setupRoutes()
	return s
}

// Publisher returns the server's event publisher so other components
// (watch mode) can push analysis events to connected clients.
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

// StoreReport registers a completed report and returns its id.
func (s *Server) StoreReport(report *model.Report) string {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}

	s.mu.Lock()
	s.reports[report.ID] = report
	s.order = append(s.order, report.ID)
	s.mu.Unlock()

	return report.ID
}

// PublishStatus publishes an analysis status event
func (s *Server) PublishStatus(status pubsub.AnalysisStatus) error {
	return s.publisher.Publish(pubsub.TopicAnalysis, status.State, status)
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	s.router.HandleFunc("/api/subscribe/analysis", s.handleSubscribeAnalysis).Methods("GET")
	s.router.HandleFunc("/api/analyze", s.handleAnalyze).Methods("POST")
	s.router.HandleFunc("/api/reports", s.handleListReports).Methods("GET")
	s.router.HandleFunc("/api/reports/{id}", s.handleGetReport).Methods("GET")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	inv, err := inventory.Parse(r.Body)
	if err != nil {
		logging.WarnContext(ctx, "rejected analysis request", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.PublishStatus(pubsub.AnalysisStatus{State: "started", Message: "analysis started"})

	report, err := s.analyze(inv)
	if err != nil {
		logging.ErrorContext(ctx, "analysis failed", "error", err)
		s.PublishStatus(pubsub.AnalysisStatus{State: "failed", Message: err.Error()})

		status := http.StatusInternalServerError
		if model.IsIntegrityError(err) {
			status = http.StatusUnprocessableEntity
		}
		writeJSONError(w, status, err.Error())
		return
	}

	id := s.StoreReport(report)
	s.PublishStatus(pubsub.AnalysisStatus{
		ReportID: id,
		State:    "completed",
		Message:  "analysis completed",
		Findings: len(report.Records),
	})

	logging.InfoContext(ctx, "analysis completed",
		"reportID", id,
		"components", report.TotalComponents,
		"findings", len(report.Records),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	summaries := make([]model.Summary, 0, len(s.order))
	for _, id := range s.order {
		summaries = append(summaries, s.reports[id].Summarize())
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.RLock()
	report, ok := s.reports[id]
	s.mu.RUnlock()

	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("report not found: %s", id))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleSubscribeAnalysis(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial comment establishes the connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicAnalysis)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.Debug("SSE client gone", "error", err)
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Handler returns the configured HTTP handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "addr", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.router)
}
