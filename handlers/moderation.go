// fedistash/handlers/moderation.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fedistash/models"
)

// --- Account Tags ---

type tagRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Tag      string `json:"tag"`
	Server   string `json:"server"`
}

// HandleTagAccount applies a tag to an account and returns the account's
// updated tag list. Repeat applications increment the stored counter.
func HandleTagAccount(w http.ResponseWriter, r *http.Request, app App) {
	var req tagRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.UserID == "" || req.Username == "" || req.Tag == "" || req.Server == "" {
		respondError(w, http.StatusBadRequest, "userId, username, tag and server are required", app)
		return
	}

	if err := app.DB().TagAccount(req.UserID, req.Username, req.Tag, req.Server); err != nil {
		app.Logger().Error("Failed to tag account", "user", req.UserID, "tag", req.Tag, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to tag account", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.AccountTag{"tags": app.DB().GetAccountTags(req.UserID)}, app)
}

// HandleClearTag removes a tag from an account entirely.
func HandleClearTag(w http.ResponseWriter, r *http.Request, app App) {
	var req tagRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.UserID == "" || req.Tag == "" || req.Server == "" {
		respondError(w, http.StatusBadRequest, "userId, tag and server are required", app)
		return
	}

	if err := app.DB().ClearAccountTag(req.UserID, req.Tag, req.Server); err != nil {
		app.Logger().Error("Failed to clear account tag", "user", req.UserID, "tag", req.Tag, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to clear tag", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.AccountTag{"tags": app.DB().GetAccountTags(req.UserID)}, app)
}

// HandleGetTags lists an account's tags.
func HandleGetTags(w http.ResponseWriter, r *http.Request, app App) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId is required", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.AccountTag{"tags": app.DB().GetAccountTags(userID)}, app)
}

// --- Reasons ---

type reasonRequest struct {
	Reason string `json:"reason"`
	Active *bool  `json:"active"`
	Filter *bool  `json:"filter"`
}

func HandleListReasons(w http.ResponseWriter, r *http.Request, app App) {
	respondJSON(w, http.StatusOK, map[string][]models.Reason{"reasons": app.DB().GetAllReasons()}, app)
}

func HandleCreateReason(w http.ResponseWriter, r *http.Request, app App) {
	var req reasonRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "Reason is required", app)
		return
	}

	active, filter := true, false
	if req.Active != nil {
		active = *req.Active
	}
	if req.Filter != nil {
		filter = *req.Filter
	}

	if _, err := app.DB().CreateReason(req.Reason, active, filter); err != nil {
		app.Logger().Error("Failed to create reason", "reason", req.Reason, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create reason", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Reason{"reasons": app.DB().GetAllReasons()}, app)
}

// HandleUpdateReason replaces all fields of one reason; partial updates
// are rejected.
func HandleUpdateReason(w http.ResponseWriter, r *http.Request, app App) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid reason id", app)
		return
	}

	var req reasonRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.Reason == "" || req.Active == nil || req.Filter == nil {
		respondError(w, http.StatusBadRequest, "Reason, active and filter are all required for an update", app)
		return
	}

	updated, err := app.DB().UpdateReason(id, req.Reason, *req.Active, *req.Filter)
	if err != nil {
		app.Logger().Error("Failed to update reason", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update reason", app)
		return
	}
	if !updated {
		respondError(w, http.StatusNotFound, "Reason not found", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Reason{"reasons": app.DB().GetAllReasons()}, app)
}

func HandleDeleteReason(w http.ResponseWriter, r *http.Request, app App) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid reason id", app)
		return
	}
	deleted, err := app.DB().DeleteReason(id)
	if err != nil {
		app.Logger().Error("Failed to delete reason", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete reason", app)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Reason not found", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Reason{"reasons": app.DB().GetAllReasons()}, app)
}

// --- Muted Words ---

type mutedWordRequest struct {
	Word string `json:"word"`
}

func HandleListMutedWords(w http.ResponseWriter, r *http.Request, app App) {
	respondJSON(w, http.StatusOK, map[string][]string{"words": app.DB().GetMutedWords()}, app)
}

func HandleCreateMutedWord(w http.ResponseWriter, r *http.Request, app App) {
	var req mutedWordRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.Word == "" {
		respondError(w, http.StatusBadRequest, "Word is required", app)
		return
	}
	if err := app.DB().CreateMutedWord(req.Word); err != nil {
		app.Logger().Error("Failed to create muted word", "word", req.Word, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to add muted word", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"words": app.DB().GetMutedWords()}, app)
}

func HandleDeleteMutedWord(w http.ResponseWriter, r *http.Request, app App) {
	word := r.URL.Query().Get("word")
	if word == "" {
		var req mutedWordRequest
		if err := decodeJSONBody(r, &req); err == nil {
			word = req.Word
		}
	}
	if word == "" {
		respondError(w, http.StatusBadRequest, "Word is required", app)
		return
	}
	if err := app.DB().DeleteMutedWord(word); err != nil {
		app.Logger().Error("Failed to delete muted word", "word", word, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to remove muted word", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"words": app.DB().GetMutedWords()}, app)
}

// --- Servers ---

type serverRequest struct {
	URI     string `json:"uri"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`
}

func HandleListServers(w http.ResponseWriter, r *http.Request, app App) {
	respondJSON(w, http.StatusOK, map[string][]models.Server{"servers": app.DB().GetAllServers()}, app)
}

func HandleCreateServer(w http.ResponseWriter, r *http.Request, app App) {
	var req serverRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.URI == "" || req.Slug == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "uri, slug and name are required", app)
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	if _, err := app.DB().CreateServer(req.URI, req.Slug, req.Name, enabled); err != nil {
		app.Logger().Error("Failed to create server", "slug", req.Slug, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create server", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Server{"servers": app.DB().GetAllServers()}, app)
}

func HandleUpdateServer(w http.ResponseWriter, r *http.Request, app App) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid server id", app)
		return
	}

	var req serverRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.URI == "" || req.Slug == "" || req.Name == "" || req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "uri, slug, name and enabled are all required for an update", app)
		return
	}

	updated, err := app.DB().UpdateServer(id, req.URI, req.Slug, req.Name, *req.Enabled)
	if err != nil {
		app.Logger().Error("Failed to update server", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update server", app)
		return
	}
	if !updated {
		respondError(w, http.StatusNotFound, "Server not found", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Server{"servers": app.DB().GetAllServers()}, app)
}

func HandleDeleteServer(w http.ResponseWriter, r *http.Request, app App) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid server id", app)
		return
	}
	deleted, err := app.DB().DeleteServer(id)
	if err != nil {
		app.Logger().Error("Failed to delete server", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete server", app)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Server not found", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Server{"servers": app.DB().GetAllServers()}, app)
}

// --- Credentials ---

type credentialRequest struct {
	ServerURL   string `json:"serverUrl"`
	AccessToken string `json:"accessToken"`
	ID          int64  `json:"id"`
}

func HandleListCredentials(w http.ResponseWriter, r *http.Request, app App) {
	respondJSON(w, http.StatusOK, map[string][]models.Credential{"credentials": app.DB().FetchAllCredentials()}, app)
}

func HandleCreateCredential(w http.ResponseWriter, r *http.Request, app App) {
	var req credentialRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.ServerURL == "" || req.AccessToken == "" {
		respondError(w, http.StatusBadRequest, "serverUrl and accessToken are required", app)
		return
	}
	if app.DB().CredentialExists(req.ServerURL) {
		respondError(w, http.StatusConflict, "A credential for this server already exists", app)
		return
	}
	if _, err := app.DB().InsertCredential(req.ServerURL, req.AccessToken); err != nil {
		app.Logger().Error("Failed to store credential", "server_url", req.ServerURL, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to store credential", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Credential{"credentials": app.DB().FetchAllCredentials()}, app)
}

func HandleDeleteCredential(w http.ResponseWriter, r *http.Request, app App) {
	var req credentialRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.ServerURL == "" || req.ID == 0 {
		respondError(w, http.StatusBadRequest, "serverUrl and id are required", app)
		return
	}
	deleted, err := app.DB().RemoveCredential(req.ServerURL, req.ID)
	if err != nil {
		app.Logger().Error("Failed to remove credential", "server_url", req.ServerURL, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to remove credential", app)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Credential not found", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Credential{"credentials": app.DB().FetchAllCredentials()}, app)
}

// --- Admin ---

// HandleResetDatabase deletes all posts for one server, or wipes and
// recreates the whole schema when no server is given.
func HandleResetDatabase(w http.ResponseWriter, r *http.Request, app App) {
	slug := r.URL.Query().Get("server")
	if err := app.DB().ResetDatabase(slug); err != nil {
		app.Logger().Error("Failed to reset database", "server", slug, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to reset database", app)
		return
	}
	app.Logger().Info("Database reset", "server", slug)
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"}, app)
}

// HandleDatabaseBackup snapshots the database and hands the file to the
// configured storage service.
func HandleDatabaseBackup(w http.ResponseWriter, r *http.Request, app App) {
	path, err := app.DB().BackupDatabase()
	if err != nil {
		app.Logger().Error("Database backup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to back up database", app)
		return
	}
	location, err := app.Storage().SaveBackup(path)
	if err != nil {
		app.Logger().Error("Backup upload failed", "path", path, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to store database backup", app)
		return
	}
	app.Logger().Info("Database backup complete", "location", location)
	respondJSON(w, http.StatusOK, map[string]string{"backup": location}, app)
}
