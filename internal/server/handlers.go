package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/internal/storage"
)

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("resolve request",
		zap.String("tenant_id", req.TenantID),
		zap.Int("text_len", len(req.Text)),
	)
	response, err := s.coordinator.Resolve(r.Context(), &req)
	if err != nil {
		// Only contract violations reach here; per-marker failures are in the results.
		s.logger.Debug("resolve rejected", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tenantID := r.URL.Query().Get("tenant")
	if tenantID == "" {
		s.respondError(w, http.StatusBadRequest, "tenant is required")
		return
	}
	artifact, err := s.storage.GetArtifact(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "artifact not found")
			return
		}
		s.logger.Error("get artifact failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	artifactCount, err := s.storage.CountArtifacts(ctx)
	if err != nil {
		s.logger.Error("status: count artifacts failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"artifacts": artifactCount,
		"chunks":    chunkCount,
	}
	if s.appConfig != nil {
		resp["config"] = map[string]interface{}{
			"database_path":        s.appConfig.Storage.DatabasePath,
			"group_timeout_ms":     s.appConfig.Resolve.GroupTimeoutMs,
			"total_timeout_ms":     s.appConfig.Resolve.TotalTimeoutMs,
			"slack_window_seconds": s.appConfig.Resolve.SlackWindowSeconds,
			"spool_dir":            s.appConfig.Ingest.SpoolDir,
		}
		if diskBytes, err := storage.DiskUsageBytes(s.appConfig.Storage.DatabasePath); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
