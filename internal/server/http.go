package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ChuLiYu/priority-timeline/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type visibleResponse struct {
	TotalWidth float64 `json:"total_width"`
	Items      []Item  `json:"items"`
}

type widthRequest struct {
	Width float64 `json:"width"`
}

// NewRouter exposes svc over HTTP. The metrics endpoint is mounted only when
// collector is non-nil.
func NewRouter(svc *Service, collector *metrics.Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Get("/visible", svc.handleVisible)
	r.Get("/items", svc.handleItems)
	r.Delete("/items/{id}", svc.handleDelete)
	r.Put("/width", svc.handleResize)
	r.Get("/timeline", svc.handleRendering)

	if collector != nil {
		r.Method(http.MethodGet, "/metrics", collector.Handler())
	}
	return r
}

func (s *Service) handleVisible(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := visibleResponse{
		TotalWidth: s.domain.TotalWidth().Get(),
		Items:      s.domain.VisibleItems().Get(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Items())
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleResize(w http.ResponseWriter, r *http.Request) {
	var req widthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Resize(req.Width); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleRendering(w http.ResponseWriter, _ *http.Request) {
	body, contentType := s.Rendering()
	w.Header().Set("Content-Type", contentType)
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrItemNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalidWidth), errors.Is(err, ErrMissingID):
		code = http.StatusBadRequest
	case errors.Is(err, ErrDuplicateItem):
		code = http.StatusConflict
	}
	http.Error(w, err.Error(), code)
}
