package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"munidash/internal/core"
	"munidash/internal/log"
	"munidash/internal/metrics"
)

// withMiddleware wraps a handler with request tracing, security headers,
// rate limiting of the JSON API, structured logging and request metrics.
// route is the metric label; it is never derived from the raw URL.
func (s *Server) withMiddleware(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
		}
		clientIP := extractClientIP(r)

		reqFields := log.NewFields().WithRequestID(requestID).WithClientIP(clientIP)
		reqLogger := log.FromContext(r.Context()).With(reqFields.ToSlice()...)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		structured := log.NewStructuredLogger(reqLogger)

		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w)
		rec := &statusRecorder{ResponseWriter: w}

		structured.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.security) {
			reqLogger.WarnContext(ctx, "Suspicious request detected",
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}

		if strings.HasPrefix(route, "/api/") && !s.rateLimiter.allow(clientIP, s.security) {
			rec.Header().Set("Retry-After", "60")
			writeJSONError(rec, http.StatusTooManyRequests, "rate limit exceeded")
		} else {
			next(rec, r)
		}

		took := time.Since(start)
		structured.LogHTTPEnd(ctx, r, rec.code(), took.Milliseconds(), clientIP)
		metrics.ObserveRequest(route, rec.code(), took)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports dataset availability. The service is ready once the
// population dataset is loaded and templates parsed; facility data is
// optional.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if !s.dash.Ready() {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}
	checks["datasets"] = s.dash.Datasets()
	checks["loaded_at"] = s.dash.LoadedAt().Format(time.RFC3339)
	checks["municipalities"] = len(s.dash.ListMunicipalities())
	checks["cache"] = map[string]any{"view_entries": s.views.Size()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}
	checks["security"] = s.security.snapshot()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

type indexData struct {
	Municipalities      []string
	Selected            string
	PopulationAvailable bool
	HealthAvailable     bool
	Partial             []byte
}

// Content returns the pre-rendered partial for the initial selection. The
// bytes come from html/template, so they are already escaped.
func (d indexData) Content() template.HTML {
	return template.HTML(d.Partial)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	names := s.dash.ListMunicipalities()
	data := indexData{
		Municipalities:      names,
		PopulationAvailable: s.dash.Ready(),
		HealthAvailable:     s.dash.HealthAvailable(),
	}

	// The dropdown defaults to the first municipality; ?municipality= can
	// preselect another one.
	if len(names) > 0 {
		data.Selected = names[0]
		if want, err := ParseMunicipality(r.URL.Query()); err == nil && containsName(names, want) {
			data.Selected = want
		}
		html, err := s.renderMunicipality(r.Context(), data.Selected)
		if err != nil {
			logger.ErrorContext(r.Context(), "Initial municipality render failed",
				log.FieldError, err,
				log.FieldMunicipality, data.Selected)
		}
		data.Partial = html
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err,
			"template", "index.html")
		http.Error(w, "Error al generar la página", http.StatusInternalServerError)
	}
}

// handleMunicipalityPartial renders the cards and chart containers for one
// municipality.
func (s *Server) handleMunicipalityPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	name, err := ParseMunicipality(r.URL.Query())
	if err != nil {
		BadRequestError("Seleccione un municipio").Write(w)
		return
	}

	html, err := s.renderMunicipality(r.Context(), name)
	switch {
	case errors.Is(err, core.ErrUnknownMunicipality):
		log.FromContext(r.Context()).InfoContext(r.Context(), "Unknown municipality requested",
			log.FieldMunicipality, name,
			log.FieldErrorType, log.ErrorTypeNotFound)
		NotFoundError("Municipio desconocido: " + name).
			TriggerErrorNotification("Municipio desconocido").
			Write(w)
		return
	case err != nil:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Municipality render failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithMunicipality(name).WithErrorType(log.ErrorTypeInternal))
		InternalServerError("Error al generar la vista").Write(w)
		return
	}

	resp := NewHTMXResponse().HTML(html).TriggerMunicipalitySelected(name)
	if !s.dash.HealthAvailable() {
		resp.TriggerWarningNotification("Datos de unidades de salud no disponibles")
	}
	resp.Write(w)
}

func (s *Server) handleListMunicipalities(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	names := s.dash.ListMunicipalities()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"municipalities": names})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	m, ok := s.lookupMetrics(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	m, ok := s.lookupMetrics(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, BuildCharts(m))
}

func (s *Server) handlePopulation(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.PopulationAggregate())
}

func (s *Server) handleHealthAggregates(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.HealthAggregates())
}

// lookupMetrics derives metrics for the requested municipality, writing the
// JSON error response itself when it cannot.
func (s *Server) lookupMetrics(w http.ResponseWriter, r *http.Request) (core.MunicipalityMetrics, bool) {
	name, err := ParseMunicipality(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return core.MunicipalityMetrics{}, false
	}
	m, err := s.dash.DeriveMetrics(r.Context(), name)
	switch {
	case errors.Is(err, core.ErrUnknownMunicipality):
		writeJSONError(w, http.StatusNotFound, "unknown municipality: "+name)
		return core.MunicipalityMetrics{}, false
	case err != nil:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Metric derivation failed", err, log.ComponentDashboard, log.OpDerive,
			log.NewFields().WithMunicipality(name).WithErrorType(log.ErrorTypeInternal))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return core.MunicipalityMetrics{}, false
	}
	return m, true
}

func containsName(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
