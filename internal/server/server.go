package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/config"
	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/store"
)

// Converter is the conversion entrypoint the server fronts.
type Converter interface {
	Convert(ctx context.Context, src *document.Source, format document.Format) (*document.Result, error)
}

// Records persists conversion summaries.
type Records interface {
	Save(ctx context.Context, rec store.Record) error
	Get(ctx context.Context, id string) (store.Record, bool, error)
}

// Artifacts optionally mirrors outputs to object storage.
type Artifacts interface {
	Upload(ctx context.Context, id, filename, contentType string, data []byte) (string, error)
}

// Service is the HTTP surface over the conversion pipeline.
type Service struct {
	converter Converter
	records   Records
	artifacts Artifacts
	cfg       config.StorageConfig
	health    func() any
}

// New builds the service. artifacts may be nil when no bucket is
// configured; health supplies the availability snapshot for /health.
func New(converter Converter, records Records, artifacts Artifacts, cfg config.StorageConfig, health func() any) *Service {
	return &Service{
		converter: converter,
		records:   records,
		artifacts: artifacts,
		cfg:       cfg,
		health:    health,
	}
}

// RegisterRoutes attaches handlers to the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/status/", s.handleStatus)
	mux.HandleFunc("/download/", s.handleDownload)
	mux.HandleFunc("/health", s.handleHealth)
}

func (s *Service) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	format := document.Format(strings.ToLower(r.FormValue("target_format")))
	if format == "" {
		format = document.FormatDOCX
	}
	if !document.ValidFormat(format) {
		httpError(w, http.StatusBadRequest, "unsupported target format: "+string(format))
		return
	}

	src, err := document.NewSource(safeFilename(hdr.Filename), data, maxBytes)
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := s.converter.Convert(r.Context(), src, format)
	if err != nil {
		// Only validation surfaces as an error.
		httpError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rec := store.Record{
		ID:           result.ID,
		Filename:     src.Filename,
		Format:       result.Format,
		Class:        result.Class,
		StrategyUsed: result.StrategyUsed,
		Degraded:     result.Degraded,
		PageCount:    result.PageCount,
		Attempts:     result.Attempts,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
	}

	outName := outputName(src.Filename, string(format))
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err == nil {
		outPath := uniquePath(s.cfg.OutputDir, outName)
		if err := os.WriteFile(outPath, result.Output, 0o644); err != nil {
			log.Error().Err(err).Str("path", outPath).Msg("failed to persist output")
		} else {
			rec.OutputPath = outPath
		}
	} else {
		log.Error().Err(err).Str("dir", s.cfg.OutputDir).Msg("failed to create output dir")
	}

	if s.artifacts != nil {
		key, err := s.artifacts.Upload(r.Context(), result.ID, outName, contentTypeFor(format), result.Output)
		if err != nil {
			log.Warn().Err(err).Str("conversion_id", result.ID).Msg("artifact upload failed")
		} else {
			rec.ArtifactKey = key
		}
	}

	// Use a detached context so a client disconnect cannot lose the
	// record of a finished conversion.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.records.Save(saveCtx, rec); err != nil {
		log.Error().Err(err).Str("conversion_id", result.ID).Msg("failed to save conversion record")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":            result.ID,
		"format":        result.Format,
		"class":         result.Class,
		"strategy_used": result.StrategyUsed,
		"degraded":      result.Degraded,
		"page_count":    result.PageCount,
		"attempts":      result.Attempts,
		"download_url":  "/download/" + result.ID,
	})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/status/")
	if id == "" {
		httpError(w, http.StatusBadRequest, "missing conversion id")
		return
	}
	rec, ok, err := s.records.Get(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "record lookup failed")
		return
	}
	if !ok {
		httpError(w, http.StatusNotFound, "unknown conversion id")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Service) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/download/")
	if id == "" {
		httpError(w, http.StatusBadRequest, "missing conversion id")
		return
	}
	rec, ok, err := s.records.Get(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "record lookup failed")
		return
	}
	if !ok || rec.OutputPath == "" {
		httpError(w, http.StatusNotFound, "no stored output for conversion")
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(rec.Format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(rec.OutputPath)+`"`)
	http.ServeFile(w, r, rec.OutputPath)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ok"}
	if s.health != nil {
		payload["strategies"] = s.health()
	}
	writeJSON(w, http.StatusOK, payload)
}

func contentTypeFor(format document.Format) string {
	switch format {
	case document.FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case document.FormatPPTX:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case document.FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
