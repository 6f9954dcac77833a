package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"bold-client-go/internal/model"
	"bold-client-go/internal/service"
	"bold-client-go/internal/sse"
)

// BoldHandler HTTP front end of BoldService
type BoldHandler struct {
	service *service.BoldService
}

// NewBoldHandler creates the handler
func NewBoldHandler(svc *service.BoldService) *BoldHandler {
	return &BoldHandler{service: svc}
}

// Register mounts every route on mux
func (h *BoldHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /api/bold/query", h.Query)
	mux.HandleFunc("POST /api/bold/query/sse", h.QuerySSE)
	mux.HandleFunc("POST /api/bold/identify/batch", h.IdentifyBatch)
	mux.HandleFunc("GET /api/bold/archives", h.ListArchives)
	mux.HandleFunc("GET /api/bold/archives/{name...}", h.DownloadArchive)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[BOLD] failed to write response", "error", err)
	}
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case service.IsInvalidQuery(err):
		return http.StatusBadRequest
	case service.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (model.QueryMode, *QueryRequest, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return "", nil, false
	}

	mode, err := model.ParseQueryMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return "", nil, false
	}
	return mode, &req, true
}

// Query runs a query and returns the normalized response
// POST /api/bold/query
// Body: {"mode": "taxon_search", "query": {"taxon_name": "Euptychia"}}
func (h *BoldHandler) Query(w http.ResponseWriter, r *http.Request) {
	mode, req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	res, err := h.service.Query(r.Context(), mode, &req.Query)
	if err != nil {
		slog.Warn("[BOLD] query failed", "mode", mode, "error", err)
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// QuerySSE streams progress and records as server-sent events
// POST /api/bold/query/sse
func (h *BoldHandler) QuerySSE(w http.ResponseWriter, r *http.Request) {
	mode, req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	defer writer.StopHeartbeat()

	slog.Info("[BOLD] starting SSE query", "mode", mode)
	if err := h.service.Stream(r.Context(), mode, &req.Query, writer); err != nil {
		slog.Warn("[BOLD] SSE query error", "mode", mode, "error", err)
	}
}

// IdentifyBatch identifies many sequences, streaming one job per sequence
// POST /api/bold/identify/batch
// Body: {"db": "COX1_SPECIES", "sequences": [{"id": "...", "sequence": "..."}], "fasta": ">..."}
func (h *BoldHandler) IdentifyBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	seqs, err := req.records()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	defer writer.StopHeartbeat()

	slog.Info("[BOLD] starting batch identification", "sequences", len(seqs), "db", req.DB)
	if err := h.service.StreamBatch(r.Context(), seqs, req.DB, writer); err != nil {
		slog.Warn("[BOLD] batch identification error", "error", err)
	}
}

// archiveStatus maps archive lookup errors to HTTP status codes
func archiveStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrArchiveDisabled):
		return http.StatusNotImplemented
	case service.IsArchiveMissing(err):
		return http.StatusNotFound
	case service.IsInvalidQuery(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListArchives lists stored trace archives
// GET /api/bold/archives
func (h *BoldHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Archives(r.Context())
	if err != nil {
		writeJSON(w, archiveStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"archives": names})
}

// DownloadArchive returns one trace archive as a tar file
// GET /api/bold/archives/trace/2026-03-04/<hash>.tar.gz
func (h *BoldHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	blob, err := h.service.Archive(r.Context(), name)
	if err != nil {
		slog.Warn("[BOLD] archive download failed", "key", name, "error", err)
		writeJSON(w, archiveStatus(err), errorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/x-tar")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.TrimSuffix(path.Base(name), ".gz")+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.Write(blob)
}

// Health reports liveness
func (h *BoldHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
