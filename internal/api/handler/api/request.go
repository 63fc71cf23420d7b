// Package api holds the JSON handlers mounted under /api/v1.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/newthinker/backtrack/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Invalid("request body required")
		}
		return core.Invalid("invalid JSON body: %v", err)
	}
	if dec.More() {
		return core.Invalid("request body must contain a single JSON object")
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.Invalid("%s must be an integer", name)
	}
	return v, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, core.Invalid("%s must be a boolean", name)
	}
	return v, nil
}

// pathID returns the {id} path value.
func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", core.Invalid("id required")
	}
	return id, nil
}

// paging reads limit and offset.
func paging(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit", 50); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > 500 {
		return 0, 0, core.Invalid("limit must be between 1 and 500")
	}
	if offset < 0 {
		return 0, 0, core.Invalid("offset must not be negative")
	}
	return limit, offset, nil
}

func optional[T ~string](r *http.Request, name string) *T {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	v := T(raw)
	return &v
}

func deleted(id string) map[string]any {
	return map[string]any{"id": id, "deleted": true}
}

func notConfigured(what string) error {
	return core.WrapError(core.ErrConfigMissing, fmt.Errorf("%s not configured", what))
}
