package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"concierge-backend/internal/audit"
	"concierge-backend/internal/model"
)

// go-playground/validator/v10: Struct validator for the inbound suggestion
// payload at the enqueue boundary.
var validate = validator.New()

// Enqueuer appends a request payload to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, body []byte) (string, error)
}

// Drainer runs one bounded batch and returns the acknowledged count.
type Drainer interface {
	Drain(ctx context.Context) (int, error)
}

// Suppressor manages the recipient opt-out list.
type Suppressor interface {
	Suppress(ctx context.Context, email string) error
	Reinstate(ctx context.Context, email string) error
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

// DiscardReader exposes the discard audit trail.
type DiscardReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Discard, error)
}

// Server is the HTTP surface: the upstream enqueue boundary plus a few
// operational endpoints.
type Server struct {
	queue    Enqueuer
	worker   Drainer
	optout   Suppressor
	discards DiscardReader
	cuisines map[string]bool
}

func NewServer(queue Enqueuer, worker Drainer, optout Suppressor, discards DiscardReader, allowedCuisines []string) *Server {
	cuisines := make(map[string]bool, len(allowedCuisines))
	for _, c := range allowedCuisines {
		cuisines[strings.ToLower(strings.TrimSpace(c))] = true
	}
	return &Server{
		queue:    queue,
		worker:   worker,
		optout:   optout,
		discards: discards,
		cuisines: cuisines,
	}
}

// RegisterRoutes wires the HTTP routes.
// gorilla/mux: Router provides method-based routing and URL pattern matching.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/suggestions", s.createSuggestionHandler).Methods(http.MethodPost)
	r.HandleFunc("/v1/run", s.runHandler).Methods(http.MethodPost)
	r.HandleFunc("/v1/discards", s.discardsHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/optout", s.optoutHandler).Methods(http.MethodPost, http.MethodDelete)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// suggestionInput is the collector-side payload. Field rules are stricter
// here than in the pipeline: a request rejected at this boundary never
// reaches the queue, so nothing needs discarding later.
type suggestionInput struct {
	Location   string        `json:"location"`
	Cuisine    string        `json:"cuisine" validate:"required"`
	DiningDate string        `json:"dining_date" validate:"omitempty,datetime=2006-01-02"`
	DiningTime string        `json:"dining_time" validate:"omitempty,datetime=15:04"`
	NumPeople  model.FlexInt `json:"num_people" validate:"omitempty,gt=0"`
	Email      string        `json:"email" validate:"required,email"`
}

func (s *Server) createSuggestionHandler(w http.ResponseWriter, r *http.Request) {
	var in suggestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	in.Cuisine = strings.ToLower(strings.TrimSpace(in.Cuisine))
	in.Email = strings.TrimSpace(in.Email)

	// go-playground/validator/v10: checks required fields and formats
	// against the struct tags.
	if err := validate.Struct(in); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(s.cuisines) > 0 && !s.cuisines[in.Cuisine] {
		http.Error(w, "unsupported cuisine: "+in.Cuisine, http.StatusBadRequest)
		return
	}
	// ISO dates compare correctly as strings.
	if in.DiningDate != "" && in.DiningDate < time.Now().Format("2006-01-02") {
		http.Error(w, "dining_date must not be in the past", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.optout != nil {
		suppressed, err := s.optout.IsSuppressed(ctx, in.Email)
		if err != nil {
			log.Printf("httpapi: optout check failed: %v", err)
			http.Error(w, "suppression check failed", http.StatusInternalServerError)
			return
		}
		if suppressed {
			http.Error(w, "recipient has opted out", http.StatusForbidden)
			return
		}
	}

	req := model.Request{
		ID:         uuid.NewString(),
		Location:   strings.TrimSpace(in.Location),
		Cuisine:    in.Cuisine,
		DiningDate: in.DiningDate,
		DiningTime: in.DiningTime,
		NumPeople:  in.NumPeople,
		Email:      in.Email,
	}
	body, err := json.Marshal(req)
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}

	msgID, err := s.queue.Enqueue(ctx, body)
	if err != nil {
		log.Printf("httpapi: enqueue failed: %v", err)
		http.Error(w, "enqueue failed", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"request_id": req.ID,
		"message_id": msgID,
	})
}

// runHandler triggers one drain outside the schedule, e.g. from an operator
// or a smoke test. It returns the acknowledged count.
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	processed, err := s.worker.Drain(r.Context())
	if err != nil {
		log.Printf("httpapi: drain failed: %v", err)
		http.Error(w, "drain failed", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "processed": processed})
}

func (s *Server) discardsHandler(w http.ResponseWriter, r *http.Request) {
	if s.discards == nil {
		writeJSON(w, http.StatusOK, []audit.Discard{})
		return
	}
	recent, err := s.discards.Recent(r.Context(), 100)
	if err != nil {
		log.Printf("httpapi: discard read failed: %v", err)
		http.Error(w, "discard read failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *Server) optoutHandler(w http.ResponseWriter, r *http.Request) {
	if s.optout == nil {
		http.Error(w, "opt-out not configured", http.StatusNotImplemented)
		return
	}
	var in struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	if r.Method == http.MethodDelete {
		err = s.optout.Reinstate(r.Context(), in.Email)
	} else {
		err = s.optout.Suppress(r.Context(), in.Email)
	}
	if err != nil {
		log.Printf("httpapi: optout update failed: %v", err)
		http.Error(w, "opt-out update failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
