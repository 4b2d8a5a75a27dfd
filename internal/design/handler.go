package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"roomcraft/internal/auth"
	"roomcraft/internal/events"
	"roomcraft/internal/storage"
)

const maxUploadBytes = 10 * 1024 * 1024 // 10 MB

// Handler exposes the design generation and retrieval endpoints.
type Handler struct {
	Pipeline *Pipeline
	Store    storage.Store
	Uploads  *TempStore
	Events   *events.Broker
}

// Generate handles POST /api/designs: it validates the multipart request,
// stages the uploads and drives the pipeline. Temporary upload files are
// removed on every exit path by a single deferred cleanup.
func (h Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token: user id not found")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes + (1 << 20)); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("could not parse form: %v", err))
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "At least one image is required.")
		return
	}
	roomTypeID := strings.TrimSpace(r.FormValue("roomType"))
	if roomTypeID == "" {
		writeError(w, http.StatusBadRequest, "Room type is required and cannot be empty.")
		return
	}

	budget := float64(NoBudgetCeiling)
	if priceStr := strings.TrimSpace(r.FormValue("price")); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			writeError(w, http.StatusBadRequest, "Price must be a non-negative number.")
			return
		}
		budget = price
	}

	uploads := make([]Upload, 0, len(files))
	defer func() { Cleanup(uploads) }()
	for _, header := range files {
		if header.Size > maxUploadBytes {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("image exceeds %d bytes", maxUploadBytes))
			return
		}
		upload, err := h.Uploads.Save(header)
		if err != nil {
			log.Printf("stage upload: %v", err)
			writeError(w, http.StatusInternalServerError, "Could not store uploaded image")
			return
		}
		uploads = append(uploads, upload)
	}

	result, err := h.Pipeline.Run(r.Context(), Request{
		RunID:      uuid.NewString(),
		UserID:     userID,
		RoomTypeID: roomTypeID,
		Budget:     budget,
		Uploads:    uploads,
	})
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"imageUrl": result.ImageURL,
	})
}

func (h Handler) writePipelineError(w http.ResponseWriter, err error) {
	var noMatch *NoMatchError
	var synthErr *SynthesisError
	var persistErr *PersistenceError

	switch {
	case errors.Is(err, ErrNoImage), errors.Is(err, ErrNoRoomType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoUser):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &noMatch):
		var ceiling any = noMatch.PriceCeiling
		if noMatch.PriceCeiling == NoBudgetCeiling {
			ceiling = "unlimited"
		}
		var colorID any
		if noMatch.ColorID != "" {
			colorID = noMatch.ColorID
		}
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":        "No furniture items found for the specified room and furniture type.",
			"roomType":     noMatch.RoomTypeID,
			"priceCeiling": ceiling,
			"colorId":      colorID,
		})
	case errors.As(err, &synthErr):
		log.Printf("synthesis failed: %v", synthErr.Err)
		writeError(w, http.StatusInternalServerError, "Image generation failed")
	case errors.As(err, &persistErr):
		log.Printf("persistence failed: %v", persistErr.Err)
		writeError(w, http.StatusInternalServerError, "Image generation failed")
	default:
		log.Printf("pipeline failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Image generation failed")
	}
}

// List handles GET /api/designs, returning the caller's designs with their
// furniture, material and recommendation joined.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token: user id not found")
		return
	}

	designs, err := h.Store.DesignsByUser(r.Context(), userID)
	if err != nil {
		log.Printf("list designs: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch designs")
		return
	}
	writeJSON(w, http.StatusOK, designs)
}

// Search handles GET /api/designs/search, returning every design joined,
// including the furniture's store. Any valid token may call it.
func (h Handler) Search(w http.ResponseWriter, r *http.Request) {
	designs, err := h.Store.SearchDesigns(r.Context())
	if err != nil {
		log.Printf("search designs: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch designs")
		return
	}
	writeJSON(w, http.StatusOK, designs)
}

// StreamEvents handles GET /api/events, streaming pipeline stage transitions
// over SSE.
func (h Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream inactive")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Events.Subscribe()
	defer h.Events.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
