package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/folioworks/folio/internal/backtest"
	"github.com/folioworks/folio/internal/config"
	"github.com/folioworks/folio/internal/importer"
	"github.com/folioworks/folio/internal/portfolio"
	"github.com/folioworks/folio/internal/rebalance"
	"github.com/folioworks/folio/pkg/models"
)

// ============================================================
// Request types
// ============================================================

// RebalanceRequest is the body for POST /api/v1/rebalance.
type RebalanceRequest struct {
	// Positions to rebalance; the stored portfolio is used when empty.
	Positions []models.Position `json:"positions,omitempty"`
	// Model optionally applies a saved target model before computing.
	Model    string                `json:"model,omitempty"`
	Rounding models.RoundingPolicy `json:"rounding,omitempty"`
	Sort     SortRequest           `json:"sort,omitempty"`
}

// SortRequest selects the preview's display order. Column and
// Direction set an explicit order for this response only; Toggle
// instead advances the persisted sort state for a header click
// (ascending, then descending, then cleared).
type SortRequest struct {
	Column    string `json:"column,omitempty"`
	Direction string `json:"direction,omitempty"` // "asc", "desc", or empty
	Toggle    string `json:"toggle,omitempty"`
}

// BacktestRequest is the body for POST /api/v1/backtest.
type BacktestRequest struct {
	// Model names a saved model; Holdings supplies one inline instead.
	Model    string                `json:"model,omitempty"`
	Holdings []models.ModelHolding `json:"holdings,omitempty"`

	// Benchmark names a preset; Components supplies a blend inline.
	Benchmark  string                      `json:"benchmark,omitempty"`
	Components []models.BenchmarkComponent `json:"components,omitempty"`

	Range string `json:"range,omitempty"` // 1M, 3M, 6M, YTD, 1Y, 3Y, 5Y, custom
	From  string `json:"from,omitempty"`  // YYYY-MM-DD, custom range only
	To    string `json:"to,omitempty"`
}

// ============================================================
// Positions
// ============================================================

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.portfolio.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: positions})
}

func (s *Server) handleReplacePositions(w http.ResponseWriter, r *http.Request) {
	var positions []models.Position
	if err := json.NewDecoder(r.Body).Decode(&positions); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.portfolio.Replace(r.Context(), positions); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: positions})
}

func (s *Server) handleUpsertPosition(w http.ResponseWriter, r *http.Request) {
	var p models.Position
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := s.portfolio.Upsert(r.Context(), p)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: saved})
}

func (s *Server) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.portfolio.Delete(r.Context(), id); err != nil {
		if errors.Is(err, portfolio.ErrPositionNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handleRefreshPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.portfolio.Refresh(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.PublishQuotes(positions)
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: positions})
}

func (s *Server) handleClassifications(w http.ResponseWriter, r *http.Request) {
	classes, err := s.portfolio.Classifications(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: classes})
}

// ============================================================
// Quotes
// ============================================================

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	quote, err := s.quotes.Quote(r.Context(), symbol)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: quote})
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := splitList(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.quotes.Quotes(r.Context(), symbols),
	})
}

// ============================================================
// Rebalance
// ============================================================

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	positions := req.Positions
	if len(positions) == 0 {
		var err error
		positions, err = s.portfolio.List(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	modelName := ""
	if req.Model != "" {
		m, err := s.models.Get(r.Context(), req.Model)
		if err != nil {
			if errors.Is(err, rebalance.ErrModelNotFound) {
				s.writeError(w, http.StatusNotFound, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		positions = rebalance.ApplyModel(r.Context(), positions, m, s.quotes, s.log)
		modelName = m.Name
	}

	settings, err := s.portfolio.Settings(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rounding := req.Rounding
	if rounding == "" {
		rounding = settings.Rounding
	}

	sortCol, sortDir := req.Sort.Column, parseSortDirection(req.Sort.Direction)
	if req.Sort.Toggle != "" {
		state := rebalance.SortState{
			Column:    settings.SortColumn,
			Direction: parseSortDirection(settings.SortDirection),
		}
		state.Toggle(req.Sort.Toggle)

		settings.SortColumn = state.Column
		settings.SortDirection = sortDirectionString(state.Direction)
		if err := s.portfolio.SaveSettings(r.Context(), settings); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sortCol, sortDir = state.Column, state.Direction
	}

	plan := rebalance.Recompute(positions, rounding)
	plan.ModelName = modelName
	rebalance.SortRows(plan.Rows, sortCol, sortDir)

	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plan})
}

func parseSortDirection(dir string) rebalance.SortDirection {
	switch strings.ToLower(dir) {
	case "asc":
		return rebalance.SortAsc
	case "desc":
		return rebalance.SortDesc
	default:
		return rebalance.SortNone
	}
}

func sortDirectionString(dir rebalance.SortDirection) string {
	switch dir {
	case rebalance.SortAsc:
		return "asc"
	case rebalance.SortDesc:
		return "desc"
	default:
		return ""
	}
}

// ============================================================
// Target models
// ============================================================

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	all, err := s.models.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: all})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.models.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, rebalance.ErrModelNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: m})
}

func (s *Server) handleSaveModel(w http.ResponseWriter, r *http.Request) {
	var m models.TargetModel
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.models.Save(r.Context(), m); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: m})
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.models.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		if errors.Is(err, rebalance.ErrModelNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true})
}

// handleApplyModel applies a saved model to the stored portfolio and
// persists the result.
func (s *Server) handleApplyModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.models.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, rebalance.ErrModelNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	positions, err := s.portfolio.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	applied := rebalance.ApplyModel(r.Context(), positions, m, s.quotes, s.log)
	if err := s.portfolio.Replace(r.Context(), applied); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: applied})
}

// ============================================================
// Backtest
// ============================================================

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	model := models.TargetModel{Name: "Custom", Holdings: req.Holdings}
	if req.Model != "" {
		m, err := s.models.Get(r.Context(), req.Model)
		if err != nil {
			if errors.Is(err, rebalance.ErrModelNotFound) {
				s.writeError(w, http.StatusNotFound, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		model = *m
	}
	if len(model.Holdings) == 0 {
		s.writeError(w, http.StatusBadRequest, "model or holdings are required")
		return
	}

	bench := s.resolveBenchmark(r, req, model)

	run := backtest.Request{
		Model:     model,
		Benchmark: bench,
		Range:     backtest.Range(req.Range),
	}
	if run.Range == backtest.RangeCustom {
		var err error
		if run.From, err = parseDate(req.From); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid from date; use YYYY-MM-DD")
			return
		}
		if run.To, err = parseDate(req.To); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid to date; use YYYY-MM-DD")
			return
		}
	}

	result, err := s.sim.Run(r.Context(), run)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

// resolveBenchmark prefers inline components, then the named preset,
// then the model's default benchmark, then the saved preference.
func (s *Server) resolveBenchmark(r *http.Request, req BacktestRequest, model models.TargetModel) models.Benchmark {
	if len(req.Components) > 0 {
		return models.Benchmark{Name: "Custom", Components: req.Components}
	}
	name := req.Benchmark
	if name == "" {
		name = model.Benchmark
	}
	if name == "" {
		if settings, err := s.portfolio.Settings(r.Context()); err == nil {
			name = settings.Benchmark
		}
	}
	return backtest.PresetByName(name)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	return time.Parse("2006-01-02", s)
}

func (s *Server) handleBacktestPresets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: backtest.Presets()})
}

func (s *Server) handleBacktestRanges(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: backtest.Ranges()})
}

// ============================================================
// CSV import
// ============================================================

// handleImport parses a Fidelity positions export. The CSV arrives
// either as a multipart "file" field or as the raw request body. With
// ?replace=true the parsed positions overwrite the stored portfolio.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var reader io.Reader = r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		reader = file
	}

	positions, err := importer.ParseFidelityCSV(reader)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if positions == nil {
		s.writeError(w, http.StatusBadRequest, "no position header found in CSV")
		return
	}

	if r.URL.Query().Get("replace") == "true" {
		if err := s.portfolio.Replace(r.Context(), positions); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"count":     len(positions),
			"positions": positions,
		},
	})
}

// ============================================================
// News
// ============================================================

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbols := splitList(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		positions, err := s.portfolio.List(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, p := range positions {
			symbols = append(symbols, p.Symbol)
		}
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := s.news.ForSymbols(r.Context(), symbols, limit)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

// ============================================================
// Configuration
// ============================================================

// handleGetConfig returns a sanitized view of the running config. Key
// material never leaves the process; only counts and sources do.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"storage": map[string]interface{}{
				"driver": s.cfg.Storage.Driver,
			},
			"refresh": map[string]interface{}{
				"quote_interval_sec": s.cfg.Refresh.QuoteIntervalSec,
			},
			"providers": map[string]interface{}{
				"finnhub_keys": len(s.cfg.Providers.FinnhubKeys),
				"tiingo_keys":  len(s.cfg.Providers.TiingoKeys),
			},
			"classify": map[string]interface{}{
				"gemini_configured": s.cfg.Classify.GeminiKey != "",
				"model":             s.cfg.Classify.Model,
			},
		},
	})
}

func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.portfolio.Settings(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: settings})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if settings.Rounding == "" {
		settings.Rounding = models.RoundNone
	}
	if err := s.portfolio.SaveSettings(r.Context(), settings); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: settings})
}

// splitList splits a comma-separated query value, dropping empties.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
