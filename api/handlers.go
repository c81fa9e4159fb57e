package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gregtusar/predictdesk/pkg/models"
	"github.com/gregtusar/predictdesk/pkg/research"
	"github.com/gregtusar/predictdesk/pkg/sizing"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleConfigStatus(w http.ResponseWriter, r *http.Request) {
	live := s.research.Live()
	s.writeJSON(w, http.StatusOK, models.ConfigStatus{
		CaesarAPIConfigured: live,
		Features: models.Features{
			Polymarket: true,
			Kalshi:     true,
			Caesar:     live,
		},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMarketFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.Markets(filter))
}

// parseMarketFilter reads MarketFilter query parameters. Absent parameters
// keep their defaults.
func parseMarketFilter(q url.Values) (models.MarketFilter, error) {
	filter := models.DefaultMarketFilter()

	if v := q.Get("platform"); v != "" {
		filter.Platform = v
	}
	filter.Category = q.Get("category")
	filter.Search = q.Get("search")
	if v := q.Get("sortBy"); v != "" {
		filter.SortBy = models.SortField(v)
	}
	if v := q.Get("sortOrder"); v != "" {
		filter.SortOrder = models.SortOrder(v)
	}

	var err error
	if filter.MinLiquidity, err = parseFloatParam(q, "minLiquidity"); err != nil {
		return filter, err
	}
	if filter.MinVolume, err = parseFloatParam(q, "minVolume"); err != nil {
		return filter, err
	}

	return filter, filter.Validate()
}

func parseFloatParam(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Search(r.URL.Query().Get("q")))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	polyID := r.URL.Query().Get("polymarket")
	kalshiID := r.URL.Query().Get("kalshi")
	if polyID == "" && kalshiID == "" {
		s.respondError(w, http.StatusBadRequest, "Invalid parameters", "polymarket or kalshi market id is required")
		return
	}

	var poly, kalshi *models.Market
	if polyID != "" {
		m, ok := s.store.Market(string(models.PlatformPolymarket), polyID)
		if !ok {
			s.respondError(w, http.StatusNotFound, "Market not found", "polymarket/"+polyID)
			return
		}
		poly = m
	}
	if kalshiID != "" {
		m, ok := s.store.Market(string(models.PlatformKalshi), kalshiID)
		if !ok {
			s.respondError(w, http.StatusNotFound, "Market not found", "kalshi/"+kalshiID)
			return
		}
		kalshi = m
	}

	s.writeJSON(w, http.StatusOK, sizing.Compare(poly, kalshi))
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	id := chi.URLParam(r, "id")

	market, ok := s.store.Market(platform, id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Market not found", "")
		return
	}
	s.writeJSON(w, http.StatusOK, market)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	id := chi.URLParam(r, "id")

	s.writeJSON(w, http.StatusOK, s.store.PriceHistory(platform, id))
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Opportunities())
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.research.List())
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.research.Poll(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, research.ErrJobNotFound) {
		s.respondError(w, http.StatusNotFound, "Job not found", "")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to poll research job")
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch research job", "")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

type researchRequest struct {
	Query        *string `json:"query"`
	ComputeUnits *int    `json:"computeUnits"`
	MarketID     *string `json:"marketId"`
}

func (req researchRequest) toSubmit() (research.SubmitRequest, error) {
	if req.Query == nil || strings.TrimSpace(*req.Query) == "" {
		return research.SubmitRequest{}, errors.New("query is required")
	}
	out := research.SubmitRequest{Query: *req.Query}
	if req.ComputeUnits != nil {
		units := *req.ComputeUnits
		if units < research.MinComputeUnits || units > research.MaxComputeUnits {
			return out, fmt.Errorf("computeUnits must be between %d and %d", research.MinComputeUnits, research.MaxComputeUnits)
		}
		out.ComputeUnits = units
	}
	if req.MarketID != nil {
		out.MarketID = *req.MarketID
	}
	return out, nil
}

func (s *Server) handleSubmitResearch(w http.ResponseWriter, r *http.Request) {
	var body researchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	req, err := body.toSubmit()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	job, err := s.research.Submit(r.Context(), req)
	if errors.Is(err, research.ErrInvalidRequest) {
		s.respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to create research job")
		s.respondError(w, http.StatusInternalServerError, "Failed to create research job", "")
		return
	}
	s.writeJSON(w, http.StatusCreated, job)
}

type riskRewardRequest struct {
	Probability *float64 `json:"probability"`
	Price       *float64 `json:"price"`
	Bankroll    *float64 `json:"bankroll"`
}

func (s *Server) handleRiskReward(w http.ResponseWriter, r *http.Request) {
	var body riskRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}
	if body.Probability == nil || body.Price == nil || body.Bankroll == nil {
		s.respondError(w, http.StatusBadRequest, "Invalid parameters", "probability, price and bankroll are required numbers")
		return
	}

	result, err := sizing.Compute(*body.Probability, *body.Price, *body.Bankroll)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
