package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "chat-relay/docs" // registers the generated swagger spec
	"chat-relay/internal/auth"
	"chat-relay/internal/metrics"
	"chat-relay/internal/model"
	"chat-relay/internal/service"
)

func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	// Reflected origins with credentials, matching the original relay's
	// cross-site cookie setup.
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// Public
	r.Get("/health", a.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Post("/api/login", a.Login)
	r.Post("/api/logout", a.Logout)

	// Secured
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)

		r.Get("/api/messages", a.ListMessages)
		r.Post("/api/messages", a.PostMessage)
		r.Get("/api/media/{id}", a.GetMedia)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// @Summary Log in with the daily passcode
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body map[string]string true "password"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/login [post]
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Reject malformed credentials before any tenant lookup.
	if len(body.Password) < auth.MinPasscodeLen {
		writeError(w, http.StatusUnauthorized, "Invalid password format")
		return
	}

	tenantID, ok := a.Registry.Extract(body.Password, auth.DailyPrefix(time.Now()))
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := auth.GenerateToken(tenantID)
	if err != nil {
		log.Printf("API: Failed to issue session for tenant %s: %v", tenantID, err)
		writeError(w, http.StatusInternalServerError, "Session error")
		return
	}
	auth.SetSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ui":      chatUIHTML,
	})
}

// @Summary Log out
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/logout [post]
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// @Summary Post a message, optionally with one attached file
// @Tags Messages
// @Accept mpfd
// @Produce json
// @Param content formData string false "Message text"
// @Param file formData file false "Attachment"
// @Param mediaId formData string false "Existing media id"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /api/messages [post]
func (a *API) PostMessage(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.GetTenantID(r)

	// Hard cap on the whole request body: an oversized upload must fail
	// loudly, never be stored truncated.
	r.Body = http.MaxBytesReader(w, r.Body, a.Cfg.Upload.MaxBytes)

	if err := r.ParseMultipartForm(a.Cfg.Upload.MaxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	content := r.FormValue("content")

	var upload *service.Upload
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid file upload")
			return
		}
		mime := header.Header.Get("Content-Type")
		if mime == "" {
			mime = "application/octet-stream"
		}
		upload = &service.Upload{
			Filename: header.Filename,
			MimeType: mime,
			Data:     data,
		}
	case !errors.Is(err, http.ErrMissingFile):
		// A present-but-unreadable file part is a client error, not a
		// text-only post.
		writeError(w, http.StatusBadRequest, "Invalid file upload")
		return
	}

	var mediaID int64
	if v := r.FormValue("mediaId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid media id")
			return
		}
		mediaID = id
	}

	queued, err := a.Svc.PostMessage(r.Context(), tenantID, content, upload, mediaID)
	if errors.Is(err, service.ErrValidation) {
		writeError(w, http.StatusBadRequest, "Content required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp := map[string]bool{"success": true}
	if queued {
		resp["queued"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary List messages, oldest first
// @Tags Messages
// @Produce json
// @Success 200 {array} model.Message
// @Failure 500 {object} map[string]string
// @Router /api/messages [get]
func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.GetTenantID(r)

	msgs, err := a.Svc.ListMessages(r.Context(), tenantID)
	if err != nil {
		log.Printf("API: List failed for tenant %s: %v", tenantID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// @Summary Fetch one attachment's binary payload
// @Tags Media
// @Produce octet-stream
// @Param id path int true "Media id"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/media/{id} [get]
func (a *API) GetMedia(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.GetTenantID(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid media id")
		return
	}

	md, err := a.Svc.FetchMedia(r.Context(), tenantID, id)
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Media not found")
		return
	}
	if errors.Is(err, service.ErrStoreOffline) {
		writeError(w, http.StatusServiceUnavailable, "Storage offline")
		return
	}
	if err != nil {
		log.Printf("API: Media fetch failed for tenant %s: %v", tenantID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	w.Header().Set("Content-Type", md.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", md.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(md.Data)
}

// @Summary Relay health and per-tenant queue status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	depths := a.Queue.Depths()

	queues := make(map[string]map[string]interface{})
	for _, id := range a.Registry.IDs() {
		queues[id] = map[string]interface{}{
			"depth": depths[id],
			"state": a.Queue.TenantState(id),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"store_connected": a.Store.Connected(),
		"tenants":         a.Registry.IDs(),
		"provisioned":     a.Store.Provisioned(),
		"queues":          queues,
	})
}
