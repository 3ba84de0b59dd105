// Package mockapi serves a simulated profile API with switchable quirks.
// It backs end-to-end tests and the "mock" command.
package mockapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Error codes carried in error bodies.
const (
	CodeInvalidParameter = 1001
	CodeNotFound         = 1002
	CodeMissingParameter = 1003
)

// ErrorChannel selects how errors are signaled.
type ErrorChannel string

const (
	// ChannelStatus answers errors with a 4xx status.
	ChannelStatus ErrorChannel = "status"
	// ChannelBodyFlag answers errors with 200 and success=false.
	ChannelBodyFlag ErrorChannel = "body_flag"
)

// NotFoundShape selects the answer for a well-formed id with no record.
type NotFoundShape string

const (
	// NotFoundStatus answers 404.
	NotFoundStatus NotFoundShape = "status"
	// NotFoundNullProfile answers 200, success=true and a null profile.
	NotFoundNullProfile NotFoundShape = "null_profile"
	// NotFoundErrorBody answers through the configured error channel.
	NotFoundErrorBody NotFoundShape = "error_body"
	// NotFoundCollision answers with another user's record.
	NotFoundCollision NotFoundShape = "collision"
)

// Behavior configures the simulator's quirks.
type Behavior struct {
	// Field names used in responses.
	SuccessField string
	ListField    string
	ProfileField string

	ErrorChannel ErrorChannel
	NotFound     NotFoundShape

	// AcceptMissingFilter answers a listing without the gender filter
	// with every id instead of an error.
	AcceptMissingFilter bool
	// AcceptInvalidFilter answers an unknown gender with an empty list.
	AcceptInvalidFilter bool
	// AcceptInvalidID answers malformed or negative ids with a profile.
	AcceptInvalidID bool
	// ListZeroID appends the problematic id 0 to every listing.
	ListZeroID bool
	// OmitErrorMessage drops errorMessage from error bodies.
	OmitErrorMessage bool
	// FailFirst answers the first n requests with 503.
	FailFirst int64
}

// DefaultBehavior mirrors the observed API: undocumented field names,
// errors via body flag, and silent acceptance of a missing filter.
func DefaultBehavior() Behavior {
	return Behavior{
		SuccessField:        "success",
		ListField:           "idList",
		ProfileField:        "user",
		ErrorChannel:        ChannelBodyFlag,
		NotFound:            NotFoundNullProfile,
		AcceptMissingFilter: true,
	}
}

// ConformingBehavior answers every request the way the documentation
// describes.
func ConformingBehavior() Behavior {
	return Behavior{
		SuccessField: "isSuccess",
		ListField:    "result",
		ProfileField: "user",
		ErrorChannel: ChannelStatus,
		NotFound:     NotFoundStatus,
	}
}

// User is one profile record.
type User struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Gender           string `json:"gender"`
	Age              int64  `json:"age"`
	City             string `json:"city"`
	RegistrationDate string `json:"registrationDate"`
}

// DefaultUsers returns a small population covering every category.
func DefaultUsers() []User {
	return []User{
		{ID: 1, Name: "Alice", Gender: "female", Age: 29, City: "Lisbon", RegistrationDate: "2021-04-12T09:30:00"},
		{ID: 2, Name: "Bob", Gender: "male", Age: 34, City: "Oslo", RegistrationDate: "2020-11-02T18:05:41.123"},
		{ID: 5, Name: "Merlin", Gender: "magic", Age: 112, City: "Avalon", RegistrationDate: "2019-01-01T00:00:00"},
		{ID: 8, Name: "Connor", Gender: "McCloud", Age: 41, City: "Glenfinnan", RegistrationDate: "2018-06-30T12:00:00.5"},
	}
}

// Server is the simulator handler.
type Server struct {
	behavior Behavior
	users    []User
	byID     map[int64]User
	logger   *zap.Logger
	requests atomic.Int64
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs each request.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds the simulator. A nil users slice selects DefaultUsers.
func New(b Behavior, users []User, opts ...Option) *Server {
	if users == nil {
		users = DefaultUsers()
	}
	def := DefaultBehavior()
	if b.SuccessField == "" {
		b.SuccessField = def.SuccessField
	}
	if b.ListField == "" {
		b.ListField = def.ListField
	}
	if b.ProfileField == "" {
		b.ProfileField = def.ProfileField
	}
	if b.ErrorChannel == "" {
		b.ErrorChannel = def.ErrorChannel
	}
	if b.NotFound == "" {
		b.NotFound = def.NotFound
	}

	s := &Server{
		behavior: b,
		users:    append([]User(nil), users...),
		byID:     make(map[int64]User, len(users)),
		logger:   zap.NewNop(),
	}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.flaky)
	r.Get("/api/test/users", s.handleList)
	r.Get("/api/test/user/", s.handleProfile)
	r.Get("/api/test/user/{id}", s.handleProfile)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns the number of requests received.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("mock request",
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.Int("status", ww.Status()),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) flaky(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.requests.Add(1)
		if n <= s.behavior.FailFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var categories = map[string]bool{"male": true, "female": true, "magic": true, "mccloud": true}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gender, present := q["gender"]

	var ids []int64
	switch {
	case !present:
		if !s.behavior.AcceptMissingFilter {
			s.writeError(w, http.StatusBadRequest, CodeMissingParameter, "gender parameter is required")
			return
		}
		ids = s.filter("any")
	case gender[0] == "any" || categories[strings.ToLower(gender[0])]:
		ids = s.filter(gender[0])
	default:
		if !s.behavior.AcceptInvalidFilter {
			s.writeError(w, http.StatusBadRequest, CodeInvalidParameter, "unknown gender "+strconv.Quote(gender[0]))
			return
		}
		ids = []int64{}
	}
	if s.behavior.ListZeroID {
		ids = append(ids, 0)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		s.behavior.SuccessField: true,
		"errorCode":             0,
		"errorMessage":          nil,
		s.behavior.ListField:    ids,
	})
}

func (s *Server) filter(gender string) []int64 {
	ids := []int64{}
	for _, u := range s.users {
		if gender == "any" || strings.EqualFold(u.Gender, gender) {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		if s.behavior.AcceptInvalidID && len(s.users) > 0 {
			s.writeProfile(w, s.users[0])
			return
		}
		s.writeError(w, http.StatusBadRequest, CodeInvalidParameter, "invalid id "+strconv.Quote(raw))
		return
	}

	u, ok := s.byID[id]
	if ok {
		s.writeProfile(w, u)
		return
	}

	switch s.behavior.NotFound {
	case NotFoundStatus:
		s.writeErrorStatus(w, http.StatusNotFound, CodeNotFound, "user not found")
	case NotFoundNullProfile:
		s.writeJSON(w, http.StatusOK, map[string]any{
			s.behavior.SuccessField: true,
			"errorCode":             0,
			"errorMessage":          nil,
			s.behavior.ProfileField: nil,
		})
	case NotFoundCollision:
		if len(s.users) > 0 {
			s.writeProfile(w, s.users[0])
			return
		}
		s.writeErrorStatus(w, http.StatusNotFound, CodeNotFound, "user not found")
	default:
		s.writeError(w, http.StatusNotFound, CodeNotFound, "user not found")
	}
}

func (s *Server) writeProfile(w http.ResponseWriter, u User) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		s.behavior.SuccessField: true,
		"errorCode":             0,
		"errorMessage":          nil,
		s.behavior.ProfileField: u,
	})
}

// writeError signals through the configured channel. status is used only
// for the status channel.
func (s *Server) writeError(w http.ResponseWriter, status, code int, msg string) {
	if s.behavior.ErrorChannel == ChannelStatus {
		s.writeErrorStatus(w, status, code, msg)
		return
	}
	s.writeErrorStatus(w, http.StatusOK, code, msg)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, status, code int, msg string) {
	body := map[string]any{
		s.behavior.SuccessField: false,
		"errorCode":             code,
		"errorMessage":          msg,
	}
	if s.behavior.OmitErrorMessage {
		delete(body, "errorMessage")
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode mock response", zap.Error(err))
	}
}
