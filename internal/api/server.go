package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/config"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/swap"
)

const successMessage = "Swap Executed Successfully"

type Swapper interface {
	ExecuteSwap(ctx context.Context, amountIn string) (*swap.Receipt, error)
	Quote(ctx context.Context, amountIn string) (*swap.QuoteView, error)
}

type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	swapper Swapper
}

func NewServer(cfg *config.Config, logger *slog.Logger, swapper Swapper) *Server {
	return &Server{cfg: cfg, logger: logger, swapper: swapper}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.withAuth(s.handleHealth))
	mux.HandleFunc("/swap", s.withAuth(s.handleSwap))
	mux.HandleFunc("/quote", s.withAuth(s.handleQuote))
	mux.HandleFunc("/", s.handleNotFound)
	return s.withRequestID(mux)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.API.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxTimeout)
	}()
	s.logger.Info("api listening", "listen", s.cfg.API.Listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		logger := s.logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, logger)))
	})
}

func (s *Server) requestLogger(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return s.logger
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.API.AuthToken != "" {
			token := r.Header.Get("X-API-Key")
			if token == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					token = strings.TrimSpace(auth[7:])
				}
			}
			if token != s.cfg.API.AuthToken {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.handleNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.handleNotFound(w, r)
		return
	}
	logger := s.requestLogger(r)

	var req swapRequest
	if err := readJSON(r, &req); err != nil {
		logger.Warn("bad swap request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid amountIn")
		return
	}
	amountIn, err := req.amount()
	if err != nil {
		logger.Warn("bad swap request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid amountIn")
		return
	}

	// A swap that reached the chain must finish even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	logger.Info("swap requested", "amount_in", amountIn)
	receipt, err := s.swapper.ExecuteSwap(ctx, amountIn)
	if err != nil {
		s.writeFailure(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: receipt, Message: successMessage, Status: http.StatusOK})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.handleNotFound(w, r)
		return
	}
	logger := s.requestLogger(r)
	amountIn := strings.TrimSpace(r.URL.Query().Get("amountIn"))
	if amountIn == "" {
		writeError(w, http.StatusBadRequest, "Invalid amountIn")
		return
	}
	q, err := s.swapper.Quote(r.Context(), amountIn)
	if err != nil {
		s.writeFailure(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: q, Message: "Quote Retrieved Successfully", Status: http.StatusOK})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func (s *Server) writeFailure(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var invalid *swap.InvalidAmountError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type swapRequest struct {
	AmountIn json.RawMessage `json:"amountIn"`
}

// amount accepts "10.5" or 10.5 and returns the decimal text.
func (r swapRequest) amount() (string, error) {
	raw := strings.TrimSpace(string(r.AmountIn))
	if raw == "" || raw == "null" {
		return "", errors.New("amountIn is required")
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(r.AmountIn, &s); err != nil {
			return "", err
		}
		if strings.TrimSpace(s) == "" {
			return "", errors.New("amountIn is required")
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(r.AmountIn, &n); err != nil {
		return "", fmt.Errorf("amountIn must be a string or number: %w", err)
	}
	return n.String(), nil
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status"`
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(b, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message, Status: status})
}
