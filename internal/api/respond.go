package api

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/directory"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// writeServiceError maps directory errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case eris.Is(err, directory.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "entry not found")
	case eris.Is(err, directory.ErrCompilation):
		writeError(w, http.StatusBadRequest, "compilation_failed", err.Error())
	case eris.Is(err, directory.ErrInvalidEntry):
		writeError(w, http.StatusBadRequest, "invalid_entry", err.Error())
	case eris.Is(err, directory.ErrNotUpdated):
		writeError(w, http.StatusConflict, "not_updated", "entry was not updated")
	case eris.Is(err, directory.ErrExportFailed):
		zap.L().Error("api: export failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export_failed", "backup could not be written")
	default:
		zap.L().Error("api: request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
