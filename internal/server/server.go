package server

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"scansave/internal/chat"
	"scansave/internal/receipt"
)

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Server handles HTTP requests for the receipt pipeline and the chat
// assistant.
type Server struct {
	pipeline    *receipt.Service
	ledger      *receipt.Ledger
	trend       *receipt.Trend
	chat        *chat.Manager
	basicAuth   BasicAuth
	defaultLang string
	mux         *http.ServeMux
}

// NewServer creates a new Server with a default mux
func NewServer(pipeline *receipt.Service, ledger *receipt.Ledger, trend *receipt.Trend, manager *chat.Manager, basicAuth BasicAuth, defaultLang string) *Server {
	return NewServerWithMux(pipeline, ledger, trend, manager, basicAuth, defaultLang, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(pipeline *receipt.Service, ledger *receipt.Ledger, trend *receipt.Trend, manager *chat.Manager, basicAuth BasicAuth, defaultLang string, mux *http.ServeMux) *Server {
	s := &Server{
		pipeline:    pipeline,
		ledger:      ledger,
		trend:       trend,
		chat:        manager,
		basicAuth:   basicAuth,
		defaultLang: defaultLang,
		mux:         mux,
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes, most specific first.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/receipts/export", s.requireAuth(s.handleExportReceipts))
	s.mux.HandleFunc("GET /api/receipts/{id}/image", s.requireAuth(s.handleReceiptImage))
	s.mux.HandleFunc("GET /api/receipts/{id}", s.requireAuth(s.handleGetReceipt))
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.requireAuth(s.handleDeleteReceipt))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListReceipts))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleUploadReceipt))

	s.mux.HandleFunc("GET /api/trend", s.requireAuth(s.handleTrend))

	s.mux.HandleFunc("POST /api/sessions/{id}/activate", s.requireAuth(s.handleActivateSession))
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.requireAuth(s.handleDeleteSession))
	s.mux.HandleFunc("GET /api/sessions", s.requireAuth(s.handleListSessions))
	s.mux.HandleFunc("POST /api/sessions", s.requireAuth(s.handleNewSession))

	s.mux.HandleFunc("POST /api/chat", s.requireAuth(s.handleChat))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="ScanSave"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// language picks the request language, falling back to the configured
// default.
func (s *Server) language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	if lang := r.FormValue("language"); lang != "" {
		return lang
	}
	return s.defaultLang
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
