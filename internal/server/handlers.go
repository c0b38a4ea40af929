// Package server provides the HTTP API over the detection orchestrator.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"keymate/internal/core"
	"keymate/internal/detect"
	"keymate/internal/modelid"
	"keymate/internal/normalize"
	"keymate/internal/version"
)

// Handler holds the HTTP handlers
type Handler struct {
	detector *detect.Detector
}

// NewHandler creates a new handler over the given detector
func NewHandler(detector *detect.Detector) *Handler {
	return &Handler{detector: detector}
}

// keyRequest is the body for endpoints operating on a raw credential.
type keyRequest struct {
	APIKey   string `json:"api_key"`
	Provider string `json:"provider,omitempty"`
}

// modelInfoRequest is the body for the per-model info endpoint.
type modelInfoRequest struct {
	APIKey   string `json:"api_key"`
	Provider string `json:"provider"`
	ModelID  string `json:"model_id"`
}

// analyzeRequest is the body for offline model-id analysis.
type analyzeRequest struct {
	ModelID string `json:"model_id"`
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Get(),
	})
}

// ListProviders handles GET /v1/providers
func (h *Handler) ListProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"providers": h.detector.Registry().All(),
	})
}

// DetectKey handles POST /v1/keys/detect
func (h *Handler) DetectKey(c echo.Context) error {
	var req keyRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "invalid request body: "+err.Error())
	}

	detection := h.detector.DetectProvider(c.Request().Context(), req.APIKey)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"key":       core.MaskCredential(req.APIKey),
		"detection": detection,
	})
}

// KeyDetails handles POST /v1/keys/details. When no provider is given the
// key is detected first; the detail fetch then runs against the winner.
func (h *Handler) KeyDetails(c echo.Context) error {
	var req keyRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "invalid request body: "+err.Error())
	}

	provider := core.ProviderID(req.Provider)
	if provider == "" {
		detection := h.detector.DetectProvider(c.Request().Context(), req.APIKey)
		if !detection.Valid {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"key":       core.MaskCredential(req.APIKey),
				"detection": detection,
			})
		}
		provider = detection.Provider
	}

	report, err := h.detector.GetDetailedInfo(c.Request().Context(), provider, req.APIKey)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"key":      core.MaskCredential(req.APIKey),
		"provider": provider,
		"report":   report,
	})
}

// AnalyzeModel handles POST /v1/models/analyze. Purely offline: guesses the
// owning provider from naming conventions and splits the id into parts.
func (h *Handler) AnalyzeModel(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "invalid request body: "+err.Error())
	}
	if req.ModelID == "" {
		return invalidRequest(c, "model_id is required")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"model_id":         req.ModelID,
		"guessed_provider": modelid.GuessProvider(req.ModelID),
		"parts":            modelid.Parse(req.ModelID),
	})
}

// ModelTable handles POST /v1/models/table
func (h *Handler) ModelTable(c echo.Context) error {
	var req keyRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "invalid request body: "+err.Error())
	}
	if req.Provider == "" {
		return invalidRequest(c, "provider is required")
	}

	provider := core.ProviderID(req.Provider)
	adapter, ok := h.detector.Registry().Adapter(provider)
	if !ok {
		return invalidRequest(c, "unknown provider: "+req.Provider)
	}

	details, err := adapter.ListModels(c.Request().Context(), req.APIKey)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"provider": provider,
		"models":   normalize.ModelsForTable(provider, details),
	})
}

// ModelInfo handles POST /v1/models/info
func (h *Handler) ModelInfo(c echo.Context) error {
	var req modelInfoRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "invalid request body: "+err.Error())
	}
	if req.Provider == "" || req.ModelID == "" {
		return invalidRequest(c, "provider and model_id are required")
	}

	adapter, ok := h.detector.Registry().Adapter(core.ProviderID(req.Provider))
	if !ok {
		return invalidRequest(c, "unknown provider: "+req.Provider)
	}

	info, err := adapter.GetModelInfo(c.Request().Context(), req.APIKey, req.ModelID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"provider": req.Provider,
		"model_id": req.ModelID,
		"info":     info,
	})
}

// History handles GET /v1/history
func (h *Handler) History(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return invalidRequest(c, "limit must be a non-negative integer")
		}
		limit = parsed
	}

	entries, err := h.detector.History().Recent(c.Request().Context(), limit)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

func invalidRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "invalid_request_error",
			"message": message,
		},
	})
}

// handleError converts probe errors to appropriate HTTP responses. The
// upstream status is not forwarded verbatim: a 401 from a provider means the
// probed key is bad, not that the caller failed our auth, so classified
// failures surface as 200-level domain payloads except for unknown inputs.
func handleError(c echo.Context, err error) error {
	var pe *core.ProbeError
	if errors.As(err, &pe) {
		status := http.StatusBadGateway
		switch pe.Class {
		case core.FailureUnknownProvider:
			status = http.StatusBadRequest
		case core.FailureModelNotFound:
			status = http.StatusNotFound
		case core.FailureAuthentication, core.FailureAccessDenied,
			core.FailureRateLimited, core.FailureUnexpectedStatus:
			status = http.StatusOK
		}
		if status == http.StatusOK {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"error": map[string]interface{}{
					"type":        string(pe.Class),
					"provider":    string(pe.Provider),
					"status_code": pe.StatusCode,
					"message":     pe.Message,
				},
			})
		}
		return c.JSON(status, map[string]interface{}{
			"error": map[string]interface{}{
				"type":     string(pe.Class),
				"provider": string(pe.Provider),
				"message":  pe.Message,
			},
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
