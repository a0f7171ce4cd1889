// Package chi exposes the recommendation service over HTTP.
package chi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/logger"
	healthuc "github.com/reelrank/reelrank/internal/usecase/health"
	"github.com/reelrank/reelrank/internal/usecase/recommend"
)

// Server holds the HTTP handlers. Handlers log through the request-scoped
// logger stored in the request context by the server middleware.
type Server struct {
	recommend *recommend.Service
	health    *healthuc.Service
}

// NewServer creates an HTTP API server.
func NewServer(rec *recommend.Service, health *healthuc.Service) *Server {
	return &Server{recommend: rec, health: health}
}

// Routes mounts the API endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/recommendations", s.handleRecommend)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type recommendRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// fixed4 renders a score with four decimal places.
type fixed4 float64

func (f fixed4) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(f), 'f', 4, 64), nil
}

// recommendationItem is the wire shape of one recommendation.
type recommendationItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Year        int      `json:"year"`
	Rating      float64  `json:"rating"`
	Runtime     *int     `json:"runtime_minutes,omitempty"`
	Votes       int      `json:"votes"`
	Genres      []string `json:"genres"`
	Similarity  fixed4   `json:"similarity_score"`
	HybridScore float64  `json:"hybrid_score"`
	Overview    string   `json:"overview"`
	Countries   []string `json:"country_of_origin,omitempty"`
	GenreScore  float64  `json:"genre_score"`
	FinalScore  *float64 `json:"final_score,omitempty"`
	PosterURL   string   `json:"poster_url,omitempty"`
}

type recommendResponse struct {
	PromptTitle     string               `json:"prompt_title,omitempty"`
	Status          string               `json:"status"`
	Results         []recommendationItem `json:"results"`
	SearchTimeSec   float64              `json:"search_time_sec"`
	TotalCandidates int                  `json:"total_candidates"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug("Malformed recommendation request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp := s.recommend.Recommend(r.Context(), req.Query, req.TopK)

	status := http.StatusOK
	switch {
	case resp.Status == domain.StatusEmptyQuery:
		status = http.StatusBadRequest
	case resp.Failed():
		log.Error("Recommendation search failed", zap.String("status", resp.Status))
		status = http.StatusBadGateway
	}

	writeJSON(w, status, toWire(resp))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		logger.FromContext(r.Context()).Warn("Health check not healthy",
			zap.String("status", string(report.Status)),
			zap.Any("checks", report.Checks))
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func toWire(resp recommend.Response) recommendResponse {
	items := make([]recommendationItem, len(resp.Results))
	for i, it := range resp.Results {
		items[i] = recommendationItem{
			ID:          it.ID,
			Title:       it.Title,
			Type:        it.Type,
			Year:        it.Year,
			Rating:      it.Rating,
			Runtime:     it.Runtime,
			Votes:       it.Votes,
			Genres:      it.Genres,
			Similarity:  fixed4(it.Similarity),
			HybridScore: it.HybridScore,
			Overview:    it.Overview,
			Countries:   it.Countries,
			GenreScore:  it.GenreScore,
			FinalScore:  it.FinalScore,
			PosterURL:   it.PosterURL,
		}
	}

	return recommendResponse{
		PromptTitle:     resp.PromptTitle,
		Status:          resp.Status,
		Results:         items,
		SearchTimeSec:   resp.SearchTime.Seconds(),
		TotalCandidates: resp.TotalCandidates,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": message})
}
