package api

import (
	"net/http"

	"github.com/equitylens/equitylens/internal/config"
)

// configView is the sanitized configuration returned by GET /api/v1/config.
// Secrets (FMP key, database URL credentials) never leave the process.
type configView struct {
	Data struct {
		FMPKeySet         bool `json:"fmp_key_set"`
		CacheTTL          int  `json:"cache_ttl"`
		ConcurrentFetches int  `json:"concurrent_fetches"`
		RequestTimeoutSec int  `json:"request_timeout_sec"`
		RatePerSecond     int  `json:"rate_per_second"`
	} `json:"data"`
	Valuation struct {
		DefaultScenario  string `json:"default_scenario"`
		SensitivitySteps int    `json:"sensitivity_steps"`
	} `json:"valuation"`
	API struct {
		Host        string   `json:"host"`
		Port        int      `json:"port"`
		CORSOrigins []string `json:"cors_origins"`
	} `json:"api"`
	Database struct {
		Enabled bool `json:"enabled"`
	} `json:"database"`
	Logging struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"logging"`
}

// handleGetConfig returns the running configuration with secrets stripped.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var view configView

	view.Data.FMPKeySet = s.cfg.Data.FMPKey != ""
	view.Data.CacheTTL = s.cfg.Data.CacheTTL
	view.Data.ConcurrentFetches = s.cfg.Data.ConcurrentFetches
	view.Data.RequestTimeoutSec = s.cfg.Data.RequestTimeoutSec
	view.Data.RatePerSecond = s.cfg.Data.RatePerSecond

	view.Valuation.DefaultScenario = s.cfg.Valuation.DefaultScenario
	view.Valuation.SensitivitySteps = s.cfg.Valuation.SensitivitySteps

	view.API.Host = s.cfg.API.Host
	view.API.Port = s.cfg.API.Port
	view.API.CORSOrigins = s.cfg.API.CORSOrigins

	view.Database.Enabled = s.cfg.Database.URL != ""

	view.Logging.Level = s.cfg.Logging.Level
	view.Logging.Format = s.cfg.Logging.Format

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: view})
}

// handleGetConfigKeys reports which optional credentials are configured,
// with masked previews.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
