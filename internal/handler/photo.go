package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"vkozyrev/photocaption/internal/model"
	"vkozyrev/photocaption/internal/pkg/httputils"
	"vkozyrev/photocaption/internal/service"

	"github.com/gorilla/mux"
)

// uploadFormField is the multipart field the image arrives in.
const uploadFormField = "form_file"

type PhotoHandler struct {
	photoService service.PhotoService
}

func NewPhotoHandler(photoService service.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

func (h *PhotoHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/upload", h.uploadPhoto).Methods("POST", "OPTIONS")
	router.HandleFunc("/photos", h.listPhotos).Methods("GET", "OPTIONS")
	router.HandleFunc("/records", h.findRecords).Methods("GET", "OPTIONS")
	router.HandleFunc("/view/{filename}", h.viewPhoto).Methods("GET", "OPTIONS")
	router.HandleFunc("/files/{filename}", h.getFile).Methods("GET", "OPTIONS")
	router.HandleFunc("/json/{filename}", h.getJSON).Methods("GET", "OPTIONS")
}

type UploadResponse struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// @Summary Upload a JPEG image
// @Description Stores the image, generates a caption for it and persists the metadata
// @ID upload
// @Accept mpfd
// @Produce json
// @Success 201 {object} UploadResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param form_file formData file true "JPEG image"
// @Router /upload [post]
func (h *PhotoHandler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "No file selected")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	result, err := h.photoService.Ingest(r.Context(), header.Filename, data)
	if errors.Is(err, service.ErrNoFile) {
		httputils.ResponseError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if err != nil {
		log.Printf("Ingest failed for %s: %v", header.Filename, err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to store image")
		return
	}

	httputils.ResponseJSON(w, http.StatusCreated, UploadResponse{
		Name:        result.Name,
		Title:       result.Caption.Title,
		Description: result.Caption.Description,
	})
}

type PhotoListResponse struct {
	Photos []string `json:"photos"`
}

// @Summary List uploaded images
// @Description Lists the keys of all stored JPEG images
// @ID list-photos
// @Produce json
// @Success 200 {object} PhotoListResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /photos [get]
func (h *PhotoHandler) listPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.photoService.ListPhotos(r.Context())
	if err != nil {
		log.Printf("Listing failed: %v", err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, PhotoListResponse{Photos: photos})
}

// @Summary View image metadata
// @Description Returns the display payload for an image: title, description and public URL
// @ID view
// @Produce json
// @Success 200 {object} model.DisplayPayload
// @Failure 500 {object} response.ErrorResponse
// @Param filename path string true "Image key"
// @Router /view/{filename} [get]
func (h *PhotoHandler) viewPhoto(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	payload, err := h.photoService.View(r.Context(), filename)
	if err != nil {
		log.Printf("View failed for %s: %v", filename, err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to load image metadata")
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, payload)
}

// @Summary Download an image
// @Description Streams the raw image bytes
// @ID get-file
// @Produce octet-stream
// @Success 200
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param filename path string true "Image key"
// @Router /files/{filename} [get]
func (h *PhotoHandler) getFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	body, contentType, err := h.photoService.Download(r.Context(), filename)
	if errors.Is(err, service.ErrObjectNotFound) {
		httputils.ResponseError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		log.Printf("Download failed for %s: %v", filename, err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to fetch file")
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("Failed to stream %s: %v", filename, err)
	}
}

// @Summary Download image metadata
// @Description Returns the raw JSON sidecar stored beside an image
// @ID get-json
// @Produce json
// @Success 200
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param filename path string true "Sidecar key"
// @Router /json/{filename} [get]
func (h *PhotoHandler) getJSON(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	data, err := h.photoService.Sidecar(r.Context(), filename)
	if errors.Is(err, service.ErrObjectNotFound) {
		httputils.ResponseError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		log.Printf("Sidecar fetch failed for %s: %v", filename, err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to fetch metadata")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		log.Printf("Failed to write sidecar %s: %v", filename, err)
	}
}

type RecordListResponse struct {
	Records []model.PhotoRecord `json:"records"`
}

// @Summary Query photo records
// @Description Equality query against the structured store, filterable by name and user
// @ID find-records
// @Produce json
// @Success 200 {object} RecordListResponse
// @Failure 500 {object} response.ErrorResponse
// @Failure 501 {object} response.ErrorResponse
// @Param name query string false "Image key"
// @Param user query string false "Uploader"
// @Router /records [get]
func (h *PhotoHandler) findRecords(w http.ResponseWriter, r *http.Request) {
	filters := map[string]interface{}{}
	if name := r.URL.Query().Get("name"); name != "" {
		filters["name"] = name
	}
	if user := r.URL.Query().Get("user"); user != "" {
		filters["user"] = user
	}

	records, err := h.photoService.FindRecords(r.Context(), filters)
	if errors.Is(err, service.ErrNoStructuredStore) {
		httputils.ResponseError(w, http.StatusNotImplemented, "Structured store is not configured")
		return
	}
	if err != nil {
		log.Printf("Record query failed: %v", err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to query records")
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, RecordListResponse{Records: records})
}
