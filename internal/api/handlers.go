package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kurlez/doctalk/internal/db"
	"github.com/kurlez/doctalk/internal/markup"
	"github.com/kurlez/doctalk/internal/models"
	"github.com/kurlez/doctalk/internal/queue"
	"github.com/kurlez/doctalk/internal/storage"
	"github.com/kurlez/doctalk/internal/voice"
)

type Handler struct {
	db           *db.DB
	queue        *queue.Queue
	archive      *storage.Storage // nil when remote archival is disabled
	catalog      *voice.Catalog
	defaultVoice string
	provider     string
}

func NewHandler(database *db.DB, q *queue.Queue, archive *storage.Storage, catalog *voice.Catalog, defaultVoice, provider string) *Handler {
	return &Handler{
		db:           database,
		queue:        q,
		archive:      archive,
		catalog:      catalog,
		defaultVoice: defaultVoice,
		provider:     provider,
	}
}

// CreateDocument handles POST /v1/documents
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "Content is required")
		return
	}

	// Set defaults
	format := markup.FormatMarkdown
	if req.Format != nil {
		parsed, err := markup.ParseFormat(*req.Format)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Unsupported format. Allowed: markdown, epub, text")
			return
		}
		format = parsed
	}

	voiceName := h.defaultVoice
	if req.Voice != nil {
		voiceName = *req.Voice
	}
	if _, err := h.catalog.Resolve(voiceName); err != nil {
		respondError(w, http.StatusBadRequest, "Unknown voice: "+voiceName)
		return
	}

	doc := &models.Document{
		ID:           uuid.New(),
		Title:        req.Title,
		SourceFormat: string(format),
		SourceText:   req.Content,
		Voice:        voiceName,
		Provider:     h.provider,
		Status:       models.DocumentStatusQueued,
	}

	if err := h.db.CreateDocument(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create document")
		return
	}

	// Create and enqueue job
	jobID := uuid.New()
	job := &models.Job{
		ID:         jobID,
		DocumentID: doc.ID,
		Type:       "convert_document",
		Status:     models.JobStatusQueued,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueConvertDocument(r.Context(), doc.ID, jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateDocumentResponse{
		DocumentID: doc.ID,
		Status:     doc.Status,
	})
}

// ListDocuments handles GET /v1/documents
// Query params:
//   - status: filter by document status (queued, processing, completed, completed_with_errors, failed)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	statusFilter := models.DocumentStatus(r.URL.Query().Get("status"))
	if statusFilter != "" {
		switch statusFilter {
		case models.DocumentStatusQueued, models.DocumentStatusProcessing,
			models.DocumentStatusCompleted, models.DocumentStatusPartial,
			models.DocumentStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: queued, processing, completed, completed_with_errors, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	docs, total, err := h.db.ListDocuments(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	if docs == nil {
		docs = []models.DocumentSummary{}
	}

	respondJSON(w, http.StatusOK, models.ListDocumentsResponse{
		Documents: docs,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

// GetDocument handles GET /v1/documents/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.db.GetDocument(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			respondError(w, http.StatusNotFound, "Document not found")
		} else {
			respondError(w, http.StatusInternalServerError, "Failed to get document")
		}
		return
	}

	tracks, err := h.db.GetDocumentTracks(r.Context(), documentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get tracks")
		return
	}

	response := models.DocumentResponse{
		Document: *doc,
		Tracks:   h.buildTrackResponses(tracks),
	}

	respondJSON(w, http.StatusOK, response)
}

// DownloadTrack handles GET /v1/documents/{id}/tracks/{part}/download.
// Archived tracks redirect to a signed URL; local-only tracks are served
// straight from disk.
func (h *Handler) DownloadTrack(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	partIndex, err := strconv.Atoi(chi.URLParam(r, "part"))
	if err != nil || partIndex < 1 {
		respondError(w, http.StatusBadRequest, "Invalid part index")
		return
	}

	track, err := h.db.GetTrack(r.Context(), documentID, partIndex)
	if err != nil {
		respondError(w, http.StatusNotFound, "Track not ready")
		return
	}

	if h.archive != nil && track.StoragePath != nil {
		// Signed URL valid for 1 hour
		signedURL, err := h.archive.SignedURL(r.Context(), *track.StoragePath, 3600)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
			return
		}
		http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+track.FileName+`"`)
	http.ServeFile(w, r, track.LocalPath)
}

// GetDocumentJobs handles GET /v1/documents/{id}/debug/jobs
func (h *Handler) GetDocumentJobs(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	jobs, err := h.db.GetDocumentJobs(r.Context(), documentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	if jobs == nil {
		jobs = []models.Job{}
	}
	respondJSON(w, http.StatusOK, jobs)
}

// ListVoices handles GET /v1/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices := h.catalog.Voices()
	infos := make([]models.VoiceInfo, 0, len(voices))
	for _, v := range voices {
		infos = append(infos, models.VoiceInfo{
			Name:        v.Name,
			Description: v.Description,
			ProviderIDs: v.IDs,
		})
	}

	respondJSON(w, http.StatusOK, models.ListVoicesResponse{
		Voices:  infos,
		Default: h.defaultVoice,
	})
}

// Helper methods
func (h *Handler) buildTrackResponses(tracks []models.Track) []models.TrackResponse {
	responses := make([]models.TrackResponse, len(tracks))
	for i, track := range tracks {
		responses[i] = models.TrackResponse{Track: track}
		if h.archive != nil && track.StoragePath != nil {
			url := h.archive.PublicURL(*track.StoragePath)
			responses[i].DownloadURL = &url
		}
	}
	return responses
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
