package twin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles known to the service.
const (
	RoleRecruiter = "recruiter"
	RoleCandidate = "candidate"
)

// tokenTTL is how long issued access tokens stay valid.
const tokenTTL = time.Hour

// User is an account the twin accepts at /api/login.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// DefaultUsers are the seeded recruiter and candidate accounts.
func DefaultUsers() []User {
	return []User{
		{Username: "recruiter1", Password: "password123", Role: RoleRecruiter},
		{Username: "candidate1", Password: "password123", Role: RoleCandidate},
	}
}

type principal struct {
	Username string
	Role     string
}

type principalKey struct{}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

// issueToken signs an HS256 access token for u.
func (s *Server) issueToken(u User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  u.Username,
		"role": u.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// parseToken verifies raw and returns the principal it names.
func (s *Server) parseToken(raw string) (principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return principal{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return principal{}, errors.New("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return principal{}, errors.New("token has no subject")
	}
	role, _ := claims["role"].(string)
	return principal{Username: sub, Role: role}, nil
}

// authenticate requires a valid bearer token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(auth, "Bearer ")
		if auth == "" || raw == auth || raw == "" {
			s.detail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		p, err := s.parseToken(raw)
		if err != nil {
			s.detail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole rejects principals whose role is not role.
func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principalFrom(r.Context()).Role != role {
				s.detail(w, http.StatusForbidden, fmt.Sprintf("Only %ss can access this endpoint", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
