package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/config"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/service"
	"github.com/hyperjump/vecsearch/internal/storage"
)

// statusFor maps an error kind to the HTTP status reported for it.
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindPayloadTooLarge, models.KindDimensionMismatch:
		return http.StatusUnprocessableEntity
	case models.KindCollectionNotFound:
		return http.StatusNotFound
	case models.KindSchemaConflict:
		return http.StatusConflict
	case models.KindIndexNotReady:
		return http.StatusServiceUnavailable
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type addDocumentRequest struct {
	Sentences []string `json:"sentences"`
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Sentences) == 0 {
		s.respondError(w, http.StatusBadRequest, "sentence list is empty")
		return
	}
	s.logger.Debug("add document request", zap.Int("sentences", len(req.Sentences)))
	out := s.svc.Add(r.Context(), req.Sentences)
	if out.Success {
		s.respondJSON(w, http.StatusOK, out)
		return
	}
	status := statusFor(out.Kind)
	if status == http.StatusBadRequest {
		s.respondError(w, status, out.Message)
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("add document failed", zap.String("kind", string(out.Kind)), zap.Error(out.Err))
	}
	s.respondJSON(w, status, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	k, err := intParam(q.Get("k"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "k must be an integer")
		return
	}
	nprobe, err := intParam(q.Get("nprobe"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "nprobe must be an integer")
		return
	}
	s.logger.Debug("search request", zap.String("query", query), zap.Int("k", k), zap.Int("nprobe", nprobe))

	out := s.svc.Query(r.Context(), service.SearchRequest{Query: query, K: k, NProbe: nprobe})
	if out.OK() {
		s.respondJSON(w, http.StatusOK, out)
		return
	}
	status := statusFor(out.Kind)
	switch out.Kind {
	case models.KindCollectionNotFound:
		s.respondError(w, status, "Collection not found")
	case models.KindIndexNotReady:
		s.respondError(w, status, "index is not ready, try again once it is built")
	default:
		if status >= http.StatusInternalServerError {
			s.logger.Error("search failed", zap.String("kind", string(out.Kind)), zap.Error(out.Err))
		}
		s.respondError(w, status, out.Err.Error())
	}
}

// intParam parses an optional integer query parameter; empty yields 0.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		kind := models.KindOf(err)
		if kind == models.KindCollectionNotFound {
			s.respondError(w, http.StatusNotFound, "Collection not found")
			return
		}
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, statusFor(kind), err.Error())
		return
	}
	resp := map[string]interface{}{
		"collection":      stats.Schema.Name,
		"dimension":       stats.Schema.Dimension,
		"max_text_length": stats.Schema.MaxTextLength,
		"records":         stats.Records,
		"index_state":     stats.IndexState,
	}
	if stats.Index != nil {
		resp["metric"] = stats.Index.Metric
		resp["index_type"] = stats.Index.IndexType
		if stats.Index.IndexType == models.IndexIVFFlat {
			resp["nlist"] = stats.Index.NList
			resp["partitions"] = stats.Partitions
		}
	}

	configInfo := map[string]interface{}{
		"backend":            s.config.Storage.Backend,
		"database_path":      s.config.Storage.DatabasePath,
		"embedding_provider": s.config.Embedding.Provider,
		"nprobe":             s.config.Search.NProbe,
		"default_k":          s.config.Search.DefaultK,
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.Backend, s.config.Storage.DatabasePath); err == nil && diskBytes > 0 {
		resp["disk_usage_bytes"] = diskBytes
	}
	if s.watch != nil {
		configInfo["watch_directories"] = s.watch.Directories()
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

type buildIndexRequest struct {
	Metric    string `json:"metric"`
	IndexType string `json:"index_type"`
	NList     int    `json:"nlist"`
	Async     bool   `json:"async"`
}

func (s *Server) handleBuildIndex(w http.ResponseWriter, r *http.Request) {
	var req buildIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params := models.IndexParams{
		Metric:    models.Metric(firstNonEmpty(req.Metric, s.config.Index.Metric)),
		IndexType: models.IndexType(firstNonEmpty(req.IndexType, s.config.Index.Type)),
		NList:     req.NList,
	}
	if params.NList == 0 {
		params.NList = s.config.Index.NList
	}
	s.logger.Info("index build request",
		zap.String("metric", string(params.Metric)),
		zap.String("index_type", string(params.IndexType)),
		zap.Int("nlist", params.NList),
		zap.Bool("async", req.Async))

	started := time.Now()
	task, err := s.svc.BuildIndex(r.Context(), params, !req.Async)
	if err != nil {
		kind := models.KindOf(err)
		s.logger.Error("index build failed", zap.String("kind", string(kind)), zap.Error(err))
		s.respondError(w, statusFor(kind), err.Error())
		return
	}
	if req.Async {
		s.respondJSON(w, http.StatusAccepted, map[string]interface{}{"status": models.IndexBuilding, "index": task.Params})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  models.IndexReady,
		"index":   task.Params,
		"took_ms": time.Since(started).Milliseconds(),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories saves the current inbox roots to the config file, if there is one.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
