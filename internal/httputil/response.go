package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies. The largest legitimate payload on
// this surface is a bulk action id list, well under a megabyte.
const maxBodyBytes = 1 << 20

// Response is the envelope every handler writes. Data and Error are
// mutually exclusive.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries a stable machine code (bad_request, not_found,
// job_running, ...) alongside the human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Response{Status: "ok", Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Response{Status: "error", Error: &ErrorBody{Code: code, Message: message}})
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// ReadJSON decodes the request body into dst. An empty body is an
// error; endpoints whose body is optional use ReadJSONOptional.
func ReadJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

// ReadJSONOptional decodes the request body into dst, leaving dst
// untouched when the request carries no body. Sync and score triggers
// use it so a bare POST runs with default flags.
func ReadJSONOptional(r *http.Request, dst interface{}) error {
	err := ReadJSON(r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
