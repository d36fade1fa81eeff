package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/the-line/internal/engine"
)

// callerHeader carries the id of the user making the request.
const callerHeader = "X-User-ID"

var errMissingCaller = errors.New("missing " + callerHeader + " header")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeInternal hides the cause; it has already been logged where it happened.
func writeInternal(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, engine.TextError)
}

func callerID(r *http.Request) (int64, error) {
	raw := r.Header.Get(callerHeader)
	if raw == "" {
		return 0, errMissingCaller
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + callerHeader + " header")
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name + " id")
	}
	return id, nil
}

// writeResult maps an engine result to a response. Defined outcomes such as
// "not queued" are successes; only StatusError is a failure.
func writeResult(w http.ResponseWriter, res interface{}, status engine.Status) {
	if status == engine.StatusError {
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
