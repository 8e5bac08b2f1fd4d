// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scmdesk/scmdesk/internal/shared"
)

const maxBodyBytes = 1 << 20

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes the request body into target, rejecting unknown fields.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: malformed body: %v", shared.ErrValidation, err)
	}
	return nil
}

// DecodeAndValidate decodes the body then runs struct validation tags.
func DecodeAndValidate(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return err
	}
	return Validate(target)
}

// IDParam parses the named chi URL parameter as a UUID.
func IDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", shared.ErrValidation, name)
	}
	return id, nil
}

// ListFilters reads page, per_page, search, status, sort and dir query parameters.
func ListFilters(r *http.Request) shared.ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return shared.ListFilters{
		Page:    page,
		PerPage: perPage,
		Search:  strings.TrimSpace(q.Get("search")),
		Status:  strings.TrimSpace(q.Get("status")),
		SortBy:  q.Get("sort"),
		SortDir: strings.ToLower(q.Get("dir")),
	}
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses an optional YYYY-MM-DD value; blank yields the zero time.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", shared.ErrValidation, field)
	}
	return t, nil
}

// QueryUUID parses an optional UUID query parameter.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", shared.ErrValidation, name)
	}
	return &id, nil
}

// ActorHeader names the caller in audit records. There is no authentication; the value is
// taken as given.
const ActorHeader = "X-Actor"

// Actor returns the caller name for audit records, "anonymous" when absent.
func Actor(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
		return actor
	}
	return "anonymous"
}
