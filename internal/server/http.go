// Package server exposes the loaded log table over a small HTTP API:
// paged row queries with filter and query expressions, column
// metadata, summary stats and an optional password gate.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fastjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/loglens/loglens/internal/engine"
	"github.com/loglens/loglens/internal/pkg/logalang"
	"github.com/loglens/loglens/internal/pkg/querylang"
	"github.com/loglens/loglens/internal/pkg/syntax"
)

const (
	defaultLimit = 100
	sessionTTL   = 24 * time.Hour
)

// UserSession represents a logged-in viewer session.
type UserSession struct {
	Token      string
	ExpireTime time.Time
}

// ViewerServer serves one loaded table.
type ViewerServer struct {
	table *engine.Table

	// passwordHash is a bcrypt hash of the access password. Empty
	// means the API is open and /api/login is not registered.
	passwordHash string

	sessions   map[string]UserSession
	sessionsMu sync.RWMutex
	srv        *http.Server
	parser     fastjson.ParserPool
}

func NewViewerServer(table *engine.Table, passwordHash string) *ViewerServer {
	return &ViewerServer{
		table:        table,
		passwordHash: passwordHash,
		sessions:     make(map[string]UserSession),
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *ViewerServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler builds the route table. Split out from Start for tests.
func (s *ViewerServer) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.passwordHash != "" {
		mux.HandleFunc("/api/login", s.handleLogin)
		mux.Handle("/api/rows", s.AuthMiddleware(http.HandlerFunc(s.handleRows)))
		mux.Handle("/api/columns", s.AuthMiddleware(http.HandlerFunc(s.handleColumns)))
		mux.Handle("/api/stats", s.AuthMiddleware(http.HandlerFunc(s.handleStats)))
	} else {
		mux.HandleFunc("/api/rows", s.handleRows)
		mux.HandleFunc("/api/columns", s.handleColumns)
		mux.HandleFunc("/api/stats", s.handleStats)
	}
	return mux
}

// Shutdown gracefully shuts down the server.
func (s *ViewerServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// AuthMiddleware checks for a valid session token in the Authorization
// header or the token query parameter.
func (s *ViewerServer) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}

		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="LogLens"`)
			http.Error(w, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}

		s.sessionsMu.RLock()
		session, exists := s.sessions[token]
		s.sessionsMu.RUnlock()

		if exists {
			if time.Now().Before(session.ExpireTime) {
				next.ServeHTTP(w, r)
				return
			}
			s.sessionsMu.Lock()
			delete(s.sessions, token)
			s.sessionsMu.Unlock()
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="LogLens"`)
		http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
	})
}

func (s *ViewerServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	b := make([]byte, 16)
	rand.Read(b)
	sessionToken := hex.EncodeToString(b)

	s.sessionsMu.Lock()
	s.sessions[sessionToken] = UserSession{
		Token:      sessionToken,
		ExpireTime: time.Now().Add(sessionTTL),
	}
	s.sessionsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": sessionToken})
}

// rowsRequest carries the parsed parameters of a row query.
type rowsRequest struct {
	Offset  int
	Limit   int
	Filters []logalang.Filter
	Query   querylang.Expr
}

// handleRows serves a page of rows. GET passes parameters in the query
// string; POST passes a JSON body with the same fields, which keeps
// multi-line filter programs readable.
func (s *ViewerServer) handleRows(w http.ResponseWriter, r *http.Request) {
	var (
		req rowsRequest
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = s.rowsRequestFromQuery(r)
	case http.MethodPost:
		req, err = s.rowsRequestFromBody(r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		writeParseError(w, err)
		return
	}

	rows := s.table.Rows(req.Offset, req.Limit, req.Filters, req.Query)
	total := s.table.MatchCount(req.Filters, req.Query)

	w.Header().Set("Content-Type", "application/json")
	resp := struct {
		Total int          `json:"total"`
		Rows  []rowPayload `json:"rows"`
	}{Total: total, Rows: make([]rowPayload, 0, len(rows))}
	for i := range rows {
		resp.Rows = append(resp.Rows, rowPayload{
			Line:   rows[i].Line,
			Time:   rows[i].Time,
			Level:  rows[i].Level,
			Values: rows[i].Values,
		})
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

type rowPayload struct {
	Line   string   `json:"line"`
	Time   int64    `json:"time"`
	Level  int8     `json:"level"`
	Values []string `json:"values"`
}

func (s *ViewerServer) rowsRequestFromQuery(r *http.Request) (rowsRequest, error) {
	q := r.URL.Query()
	req := rowsRequest{Limit: defaultLimit}

	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			req.Limit = parsed
		}
	}

	if v := q.Get("filters"); v != "" {
		filters, err := logalang.ParseRules(v)
		if err != nil {
			return req, err
		}
		req.Filters = filters
	}
	if v := q.Get("query"); v != "" {
		expr, err := querylang.Parse(v)
		if err != nil {
			return req, err
		}
		req.Query = expr
	}
	return req, nil
}

func (s *ViewerServer) rowsRequestFromBody(r *http.Request) (rowsRequest, error) {
	req := rowsRequest{Limit: defaultLimit}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, fmt.Errorf("reading body: %w", err)
	}
	defer r.Body.Close()

	p := s.parser.Get()
	defer s.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}

	if v.Exists("offset") {
		req.Offset = v.GetInt("offset")
	}
	if v.Exists("limit") {
		req.Limit = v.GetInt("limit")
	}

	if raw := v.GetStringBytes("filters"); len(raw) > 0 {
		filters, err := logalang.ParseRules(string(raw))
		if err != nil {
			return req, err
		}
		req.Filters = filters
	}
	if raw := v.GetStringBytes("query"); len(raw) > 0 {
		expr, err := querylang.Parse(string(raw))
		if err != nil {
			return req, err
		}
		req.Query = expr
	}
	return req, nil
}

// writeParseError maps filter/query parse failures to 400 responses
// that keep the position information, so a UI can point at the typo.
func writeParseError(w http.ResponseWriter, err error) {
	resp := map[string]interface{}{"error": err.Error()}

	var parseErr *syntax.ParseError
	var escErr *syntax.InvalidEscapeError
	switch {
	case errors.As(err, &parseErr):
		resp["position"] = parseErr.Pos
		resp["expected"] = parseErr.Expected
	case errors.As(err, &escErr):
		resp["position"] = escErr.Pos
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(resp)
}

func (s *ViewerServer) handleColumns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.table.Columns()); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

func (s *ViewerServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.table.Stats()); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}
