package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"virtual-drive/internal/database"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/mediatypes"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON encodes v as JSON. Encoding errors are logged; the status line
// has already been sent by then.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v with a non-200 status code.
func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response with an explicit status and code.
func writeJSONError(w http.ResponseWriter, message, code string, status int) {
	writeJSONStatus(w, status, ErrorResponse{Error: message, Code: code})
}

// statusFor maps an operation error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch indexer.StatusKind(err) {
	case indexer.ErrSourceMissing:
		return http.StatusNotFound, "source_missing"
	case indexer.ErrTransferFailed:
		return http.StatusBadGateway, "transfer_failed"
	case indexer.ErrInvalidArgument:
		return http.StatusBadRequest, "invalid_argument"
	case indexer.ErrOutsideRoot:
		return http.StatusBadRequest, "outside_root"
	case indexer.ErrConflict:
		return http.StatusConflict, "conflict"
	case indexer.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case indexer.ErrIO:
		return http.StatusInternalServerError, "io_error"
	case indexer.ErrStore:
		return http.StatusInternalServerError, "store_error"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "canceled"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError logs err and writes the matching JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSONError(w, err.Error(), code, status)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &indexer.Error{Op: "decode request", Kind: indexer.ErrInvalidArgument, Err: err}
	}
	return nil
}

// listOptions reads paging and sorting parameters shared by listing routes.
func listOptions(r *http.Request) database.SearchOptions {
	q := r.URL.Query()
	opts := database.SearchOptions{
		SortField: mediatypes.SortField(q.Get("sort")),
		SortOrder: mediatypes.SortOrder(q.Get("order")),
		Page:      1,
		PageSize:  100,
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if pageSize, err := strconv.Atoi(q.Get("pageSize")); err == nil && pageSize > 0 {
		opts.PageSize = pageSize
	}
	if opts.SortField == "" {
		opts.SortField = mediatypes.SortByName
	}
	if opts.SortOrder == "" {
		opts.SortOrder = mediatypes.SortAsc
	}
	return opts
}

// requireParam returns the named query parameter or an invalid-argument error.
func requireParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", &indexer.Error{Op: "read parameter", Path: name, Kind: indexer.ErrInvalidArgument, Err: errors.New("missing required parameter")}
	}
	return v, nil
}
