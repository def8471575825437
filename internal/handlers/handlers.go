package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Brownie44l1/crack-api/internal/history"
	"github.com/Brownie44l1/crack-api/internal/verdict"
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// ImageAnalyzer classifies a staged image file.
type ImageAnalyzer interface {
	Analyze(path string) verdict.Verdict
}

// ModelStatus reports whether the classifier has been loaded.
type ModelStatus interface {
	Ready() bool
}

type Handler struct {
	analyzer  ImageAnalyzer
	status    ModelStatus
	history   *history.Store
	uploadDir string
	maxUpload int64
	logger    *slog.Logger
}

type Options struct {
	UploadDir   string
	MaxUploadMB int64
	Status      ModelStatus
	History     *history.Store
	Logger      *slog.Logger
}

func NewHandler(analyzer ImageAnalyzer, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 10
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	return &Handler{
		analyzer:  analyzer,
		status:    opts.Status,
		history:   opts.History,
		uploadDir: opts.UploadDir,
		maxUpload: opts.MaxUploadMB << 20,
		logger:    opts.Logger,
	}
}

type analyzeResponse struct {
	Success bool            `json:"success"`
	Data    verdict.Verdict `json:"data"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "AI Service is running"}
	if h.status != nil {
		resp["model_loaded"] = h.status.Ready()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		// a part sent with filename="" is parsed as a plain value
		if _, ok := r.MultipartForm.Value["image"]; ok && errors.Is(err, http.ErrMissingFile) {
			writeError(w, http.StatusBadRequest, "No selected file")
			return
		}
		writeError(w, http.StatusBadRequest, "No image part")
		return
	}
	defer file.Close()

	if !allowedFile(header.Filename) {
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	h.logger.Info("received file", "filename", header.Filename, "size", header.Size)

	path, err := h.stage(file, header.Filename)
	if err != nil {
		h.logger.Error("failed to stage upload", "filename", header.Filename, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			h.logger.Warn("failed to delete staged file", "path", path, "err", err)
		}
	}()

	result := h.analyzer.Analyze(path)

	if err := h.history.Record(r.Context(), header.Filename, result); err != nil {
		h.logger.Warn("failed to record analysis", "err", err)
	}

	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Data: result})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "History is disabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit %q", raw))
			return
		}
		limit = n
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read history", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": records})
}

func (h *Handler) stage(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+"-"+secureFilename(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func allowedFile(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(filename[i+1:])]
}

func secureFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.TrimLeft(name, "._")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
