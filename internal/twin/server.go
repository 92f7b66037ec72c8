// Package twin is an in-memory fake of the ACHARYA company-test API. It
// serves the login, assignment, listing, detail, submission and results
// endpoints, plus an /admin control plane for resets, fault injection and
// request inspection.
package twin

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acharya-hq/smokecheck/internal/api"
)

var errAlreadySubmitted = errors.New("already submitted")

// Server is the twin. It implements http.Handler.
type Server struct {
	router   *chi.Mux
	users    map[string]User
	tests    *store[assignedTest]
	faults   *FaultRegistry
	requests *requestLog
	secret   []byte
	newID    func() string
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithUsers replaces the default accounts.
func WithUsers(users ...User) Option {
	return func(s *Server) {
		s.users = make(map[string]User, len(users))
		for _, u := range users {
			s.users[u.Username] = u
		}
	}
}

// WithSecret sets the HS256 signing key for access tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithIDGenerator sets the function that names new tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

// WithClock sets the time source used for tokens and timestamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Server) { s.now = fn }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a twin seeded with DefaultUsers.
func New(opts ...Option) *Server {
	s := &Server{
		tests:    newStore[assignedTest](),
		faults:   NewFaultRegistry(),
		requests: newRequestLog(1000),
		secret:   []byte(uuid.NewString()),
		newID:    ObjectID,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	WithUsers(DefaultUsers()...)(s)
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ObjectID returns a random 24-character hex identifier, the shape the
// real service uses for test IDs.
func ObjectID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:12])
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Faults exposes the fault registry.
func (s *Server) Faults() *FaultRegistry {
	return s.faults
}

// Requests returns the requests served so far, oldest first.
func (s *Server) Requests() []RequestLogEntry {
	return s.requests.calls()
}

// Reset drops all tests, faults and logged requests.
func (s *Server) Reset() {
	s.tests.Reset()
	s.faults.Reset()
	s.requests.reset()
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.injectFaults)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.With(s.requireRole(RoleRecruiter)).Post("/recruiter/assign-company-test", s.handleAssign)
			r.With(s.requireRole(RoleRecruiter)).Get("/recruiter/company-test-results/{candidate}", s.handleResults)

			r.With(s.requireRole(RoleCandidate)).Get("/candidate/company-tests", s.handleList)
			r.With(s.requireRole(RoleCandidate)).Get("/candidate/company-tests/{id}", s.handleDetail)
			r.With(s.requireRole(RoleCandidate)).Post("/candidate/submit-company-test/{id}", s.handleSubmit)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tests": s.tests.Count()})
		})
		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			s.Reset()
			s.writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
		})
		r.Get("/requests", func(w http.ResponseWriter, r *http.Request) {
			s.writeJSON(w, http.StatusOK, s.requests.calls())
		})
		r.Post("/faults", s.handleSetFault)
		r.Delete("/faults", func(w http.ResponseWriter, r *http.Request) {
			s.faults.Reset()
			s.writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
		})
	})

	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, ok := s.users[creds.Username]
	if !ok || u.Password != creds.Password {
		s.detail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	token, err := s.issueToken(u)
	if err != nil {
		s.detail(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"role":         u.Role,
	})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var a api.Assignment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		s.detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateAssignment(a); msg != "" {
		s.detail(w, http.StatusBadRequest, msg)
		return
	}
	if u, ok := s.users[a.Candidate]; !ok || u.Role != RoleCandidate {
		s.detail(w, http.StatusNotFound, "Candidate not found")
		return
	}

	t := assignedTest{
		ID:          s.newID(),
		Candidate:   a.Candidate,
		AssignedBy:  principalFrom(r.Context()).Username,
		CompanyName: a.CompanyName,
		TestType:    a.TestType,
		Duration:    a.Duration,
		Questions:   a.Questions,
		Status:      "assigned",
		AssignedAt:  s.now(),
	}
	s.tests.Set(t.ID, t)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Company test assigned successfully",
		"test_id": t.ID,
	})
}

func validateAssignment(a api.Assignment) string {
	switch {
	case strings.TrimSpace(a.Candidate) == "":
		return "candidate is required"
	case strings.TrimSpace(a.CompanyName) == "":
		return "companyName is required"
	case strings.TrimSpace(a.TestType) == "":
		return "testType is required"
	case a.Duration <= 0:
		return "duration must be positive"
	case len(a.Questions) == 0:
		return "at least one question is required"
	}
	for _, q := range a.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return "question text is required"
		}
	}
	return ""
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	me := principalFrom(r.Context()).Username
	owned := s.tests.Filter(func(t assignedTest) bool { return t.Candidate == me })

	tests := make([]api.CompanyTest, 0, len(owned))
	for _, t := range owned {
		tests = append(tests, candidateView(t))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "tests": tests})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	t, ok := s.ownedTest(r)
	if !ok {
		s.detail(w, http.StatusNotFound, "Test not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "test": candidateView(t)})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers []api.Answer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	me := principalFrom(r.Context()).Username
	var score float64
	err := s.tests.Update(chi.URLParam(r, "id"), func(t *assignedTest) error {
		if t.Candidate != me {
			return errNotFound
		}
		if t.Status == "completed" {
			return errAlreadySubmitted
		}
		score = grade(t.Questions, body.Answers)
		t.Answers = body.Answers
		t.Score = &score
		t.Status = "completed"
		return nil
	})
	switch {
	case errors.Is(err, errNotFound):
		s.detail(w, http.StatusNotFound, "Test not found")
		return
	case errors.Is(err, errAlreadySubmitted):
		s.detail(w, http.StatusBadRequest, "Test already submitted")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Test submitted successfully",
		"score":   score,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	candidate := chi.URLParam(r, "candidate")
	owned := s.tests.Filter(func(t assignedTest) bool { return t.Candidate == candidate })

	results := make([]api.TestResult, 0, len(owned))
	for _, t := range owned {
		results = append(results, api.TestResult{
			ID:          t.ID,
			CompanyName: t.CompanyName,
			TestType:    t.TestType,
			Status:      t.Status,
			Score:       t.Score,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "tests": results})
}

func (s *Server) handleSetFault(w http.ResponseWriter, r *http.Request) {
	var f Fault
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		s.detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if f.Path == "" {
		s.detail(w, http.StatusBadRequest, "path is required")
		return
	}
	s.faults.Set(f)
	s.writeJSON(w, http.StatusOK, f)
}

// ownedTest loads the {id} test if it belongs to the calling candidate.
func (s *Server) ownedTest(r *http.Request) (assignedTest, bool) {
	t, ok := s.tests.Get(chi.URLParam(r, "id"))
	if !ok || t.Candidate != principalFrom(r.Context()).Username {
		return assignedTest{}, false
	}
	return t, true
}

// candidateView hides the correct answers.
func candidateView(t assignedTest) api.CompanyTest {
	questions := make([]api.Question, len(t.Questions))
	for i, q := range t.Questions {
		questions[i] = api.Question{Question: q.Question}
	}
	return api.CompanyTest{
		ID:          t.ID,
		CompanyName: t.CompanyName,
		TestType:    t.TestType,
		Duration:    t.Duration,
		Status:      t.Status,
		Questions:   questions,
	}
}

// grade returns the percentage of questions answered with the exact
// expected text, ignoring surrounding whitespace.
func grade(questions []api.Question, answers []api.Answer) float64 {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	seen := make(map[int]bool, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(questions) || seen[a.QuestionIndex] {
			continue
		}
		seen[a.QuestionIndex] = true
		if strings.TrimSpace(a.Answer) == strings.TrimSpace(questions[a.QuestionIndex].CorrectAnswer) {
			correct++
		}
	}
	return float64(correct) * 100 / float64(len(questions))
}

// writeJSON writes v with status. The header is already sent when encoding
// fails, so the error can only be logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", zap.Int("status", status), zap.Error(err))
	}
}

// detail writes an error in the service's {"detail": ...} shape.
func (s *Server) detail(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"detail": message})
}
