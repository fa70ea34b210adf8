package handlers

import (
	"net/http"

	"github.com/kozaktomas/facewatch/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Backend         string  `json:"backend"`
	MatchThreshold  float64 `json:"match_threshold"`
	ClearConfidence float64 `json:"clear_confidence"`
	PollIntervalMS  int64   `json:"poll_interval_ms"`
	ScanDelayMS     int64   `json:"scan_delay_ms"`
	ScanMode        string  `json:"scan_mode"`
	Camera          string  `json:"camera"`
	FrameWidth      int     `json:"frame_width"`
	FrameHeight     int     `json:"frame_height"`
	AlertsEnabled   bool    `json:"alerts_enabled"`
	AuthRequired    bool    `json:"auth_required"`
}

// Get returns the non-secret configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc := h.config.Recognition
	respondJSON(w, http.StatusOK, ConfigResponse{
		Backend:         rc.Backend,
		MatchThreshold:  rc.MatchThreshold,
		ClearConfidence: rc.ClearConfidence,
		PollIntervalMS:  rc.PollInterval().Milliseconds(),
		ScanDelayMS:     rc.ScanDelay.Milliseconds(),
		ScanMode:        rc.ScanMode,
		Camera:          h.config.Camera.Kind,
		FrameWidth:      h.config.Camera.Width,
		FrameHeight:     h.config.Camera.Height,
		AlertsEnabled:   h.config.Alert.Broker != "",
		AuthRequired:    h.config.Web.OperatorToken != "",
	})
}
