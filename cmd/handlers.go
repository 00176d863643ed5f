package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/cluster"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

type apiHandler struct {
	app *app
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *apiHandler) nearby(w http.ResponseWriter, r *http.Request) {
	origin, ok := pointParam(w, r)
	if !ok {
		return
	}
	maxKM := floatParam(r, "max_km")
	limit := intParam(r, "limit")

	pois, err := h.app.proximity.NearestOfType(r.Context(), origin,
		model.Category(r.URL.Query().Get("category")), maxKM, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pois)
}

func (h *apiHandler) accessibility(w http.ResponseWriter, r *http.Request) {
	origin, ok := pointParam(w, r)
	if !ok {
		return
	}
	result, err := h.app.proximity.AccessibilityScore(r.Context(), origin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *apiHandler) optimalRadius(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat     float64                `json:"lat"`
		Lng     float64                `json:"lng"`
		Targets map[model.Category]int `json:"targets"`
		MaxKM   float64                `json:"max_km"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.app.proximity.OptimalRadius(r.Context(),
		geo.Point{Lat: req.Lat, Lng: req.Lng}, req.Targets, req.MaxKM)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *apiHandler) catchment(w http.ResponseWriter, r *http.Request) {
	minutes := intParam(r, "minutes")
	if minutes == 0 {
		minutes = 15
	}
	uni, err := h.app.store.GetUniversity(r.Context(), chi.URLParam(r, "universityID"))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.app.proximity.CatchmentArea(r.Context(), uni, minutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *apiHandler) scoreOne(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.app.scoring.ScoreNeighborhood(r.Context(), chi.URLParam(r, "neighborhoodID"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.app.cluster.Invalidate()
	writeJSON(w, http.StatusOK, metrics)
}

func (h *apiHandler) scoreBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	result, err := h.app.scoring.ScoreAll(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *apiHandler) clusters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var cats []model.Category
	if raw := q.Get("categories"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			cats = append(cats, model.Category(strings.TrimSpace(c)))
		}
	}

	result, err := h.app.cluster.Map(r.Context(), cluster.Request{
		Bounds: geo.BBox{
			West:  floatParam(r, "west"),
			South: floatParam(r, "south"),
			East:  floatParam(r, "east"),
			North: floatParam(r, "north"),
		},
		Zoom:           intParam(r, "zoom"),
		Categories:     cats,
		MinClusterSize: intParam(r, "min_cluster_size"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *apiHandler) analyze(w http.ResponseWriter, r *http.Request) {
	origin, ok := pointParam(w, r)
	if !ok {
		return
	}
	report, err := h.app.intel.AnalyzeLocation(r.Context(), origin, floatParam(r, "radius"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *apiHandler) optimal(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.app.intel.FindOptimalLocations(r.Context(), chi.URLParam(r, "city"),
		intParam(r, "max_results"), intParam(r, "min_students"), floatParam(r, "max_distance_km"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *apiHandler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.app.store.ListAnalyses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (h *apiHandler) buildMarket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Country string `json:"country"`
		Refresh bool   `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	analysis, err := h.app.market.BuildAnalysis(r.Context(), chi.URLParam(r, "city"), req.Country, req.Refresh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, analysis)
}

func (h *apiHandler) updateMarket(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.app.market.UpdateAnalysis(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (h *apiHandler) compareMarkets(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	comparison, err := h.app.market.CompareMarkets(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (h *apiHandler) expansion(w http.ResponseWriter, r *http.Request) {
	opportunities, err := h.app.market.ExpansionOpportunities(r.Context(), chi.URLParam(r, "city"),
		floatParam(r, "radius_km"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opportunities)
}

// pointParam reads lat/lng query parameters, rejecting requests without
// them.
func pointParam(w http.ResponseWriter, r *http.Request) (geo.Point, bool) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lng") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return geo.Point{}, false
	}
	return geo.Point{Lat: floatParam(r, "lat"), Lng: floatParam(r, "lng")}, true
}

func floatParam(r *http.Request, name string) float64 {
	v, _ := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	return v
}

func intParam(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain error kinds onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case eris.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case eris.Is(err, model.ErrValidation),
		eris.Is(err, model.ErrInvalidGeometry),
		eris.Is(err, model.ErrInvalidBounds):
		status = http.StatusBadRequest
	case eris.Is(err, model.ErrInsufficientInput):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": eris.ToString(err, false)})
}
