package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/tg_file_listener/internal/logctx"
	"github.com/italolelis/tg_file_listener/internal/storage"
)

const (
	errNoFileID    = "no fileId is provided"
	errLinkMissing = "No link found for given fileId"
	welcomeMessage = "Hello from TG File Listener Service"
)

type LinkResponse struct {
	FileID   string `json:"fileId"`
	FileLink string `json:"fileLink"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

// LinkHandler serves link lookups from the registry.
type LinkHandler struct {
	links  storage.LinkReadRepository
	status *StatusHandler
}

// NewLinkHandler creates a new link handler. status may be nil, in which case
// /status is not mounted.
func NewLinkHandler(links storage.LinkReadRepository, status *StatusHandler) *LinkHandler {
	return &LinkHandler{
		links:  links,
		status: status,
	}
}

func (h *LinkHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.HandleRoot)
	r.Get("/getLink", h.HandleGetLink)
	r.Get("/getLink/", h.HandleGetLink)
	r.Get("/getLink/{fileId}", h.HandleGetLink)

	if h.status != nil {
		r.Get("/status", h.status.HandleStatus)
	}

	return r
}

// HandleRoot answers the service greeting.
func (h *LinkHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, MessageResponse{Msg: welcomeMessage})
}

// HandleGetLink looks up the download link for the fileId path parameter.
func (h *LinkHandler) HandleGetLink(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	fileID := chi.URLParam(r, "fileId")
	if fileID == "" {
		logger.Warn("no file id provided")
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: errNoFileID})

		return
	}

	logger = logger.With("file_id", fileID)
	logger.Info("searching download link")

	record, err := h.links.Get(r.Context(), fileID)
	if errors.Is(err, storage.ErrLinkNotFound) {
		logger.Info("no link found")
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: errLinkMissing})

		return
	}

	if err != nil {
		logger.Error("failed to look up link", "err", err)
		writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})

		return
	}

	logger.Info("found link")
	writeJSON(w, r, http.StatusOK, LinkResponse{FileID: fileID, FileLink: record.DownloadLink})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to encode response", "err", err)
	}
}
