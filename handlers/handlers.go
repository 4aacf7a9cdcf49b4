// fedistash/handlers/handlers.go

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"fedistash/config"
	"fedistash/database"
	"fedistash/models"
	"fedistash/timeline"
	"fedistash/utils"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	DB() *database.DatabaseService
	Syncer() *timeline.Syncer
	RateLimiter() *models.RateLimiter
	Logger() *slog.Logger
	AdminPasswordHash() string
	Storage() utils.StorageService
}

// respondJSON sends a JSON response with a given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, app App) {
	response, err := json.Marshal(payload)
	if err != nil {
		app.Logger().Error("Failed to marshal JSON payload", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte(`{"error":"Failed to marshal JSON response"}`)); werr != nil {
			app.Logger().Error("Failed to write internal server error response", "error", werr)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		app.Logger().Error("Failed to write JSON response", "error", err)
	}
}

// respondError sends a JSON error phrased in terms of the attempted
// action. Underlying causes are logged server-side only.
func respondError(w http.ResponseWriter, status int, message string, app App) {
	respondJSON(w, status, map[string]string{"error": message}, app)
}

// MakeHandler accepts our generic App interface.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// decodeJSONBody decodes a JSON request body into dst. Unknown fields
// are ignored.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// queryInt parses an integer query parameter with a default and an
// upper bound. Malformed and non-positive values fall back to the
// default, so an explicit limit=0 never produces an empty page.
func queryInt(r *http.Request, key string, def, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	return r.URL.Query().Get(key) == "true"
}

// pagination reads limit/offset with the configured page bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = queryInt(r, "limit", config.DefaultPostsPerPage, config.MaxPostsPerPage)
	offset = queryInt(r, "offset", 0, 0)
	return limit, offset
}

// HandleHealthz reports liveness.
func HandleHealthz(w http.ResponseWriter, r *http.Request, app App) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": config.AppVersion}, app)
}
