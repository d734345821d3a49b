package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rentchain/core"
	"rentchain/indexer"
	"rentchain/observability/logging"
	"rentchain/observability/metrics"
)

const (
	jsonRPCVersion         = "2.0"
	defaultMaxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32020
	codeNotFound       = -32022
	codeForbidden      = -32023
	codeConflict       = -32024
	codeModulePaused   = -32030
)

// EventLister serves events_list.
type EventLister interface {
	List(ctx context.Context, f indexer.Filter) ([]indexer.Entry, error)
}

// ServerConfig tunes the JSON-RPC server.
type ServerConfig struct {
	JWT                 JWTConfig
	RateLimitPerSecond  float64
	RateLimitBurst      int
	TrustedProxies      []string
	MaxRequestBodyBytes int64
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
}

type methodHandler struct {
	// write methods mutate the ledger and require bearer auth when enabled.
	write bool
	fn    func(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError)
}

type Server struct {
	node    *core.Node
	events  EventLister
	cfg     ServerConfig
	logger  *slog.Logger
	metrics *metrics.RentalMetrics
	auth    *authenticator
	limiter *rateLimiter
	methods map[string]methodHandler

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer builds a server over node. events may be nil, in which case
// events_list reports the index as unavailable.
func NewServer(node *core.Node, events EventLister, cfg ServerConfig, logger *slog.Logger, m *metrics.RentalMetrics) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRequestBodyBytes <= 0 {
		cfg.MaxRequestBodyBytes = defaultMaxRequestBytes
	}
	auth, err := newAuthenticator(cfg.JWT)
	if err != nil {
		return nil, err
	}
	trusted, err := parseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	s := &Server{
		node:    node,
		events:  events,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		auth:    auth,
		limiter: newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, trusted),
	}
	s.methods = map[string]methodHandler{
		"tx_submit":       {write: true, fn: s.handleTxSubmit},
		"chain_info":      {fn: s.handleChainInfo},
		"listing_get":     {fn: s.handleListingGet},
		"lease_get":       {fn: s.handleLeaseGet},
		"escrow_get":      {fn: s.handleEscrowGet},
		"bank_balance":    {fn: s.handleBankBalance},
		"events_list":     {fn: s.handleEventsList},
		"address_listing": {fn: s.handleAddressListing},
		"address_lease":   {fn: s.handleAddressLease},
		"address_escrow":  {fn: s.handleAddressEscrow},
	}
	return s, nil
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.With(s.limiter.Middleware).Post("/", s.handle)
	return otelhttp.NewHandler(r, "rentchain.rpc")
}

// Serve accepts connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()
	s.logger.Info("json-rpc server listening", slog.String("addr", listener.Addr().String()))
	return srv.Serve(listener)
}

// Start listens on addr and serves.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

func newError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

func invalidParams(message string, data interface{}) *RPCError {
	return newError(http.StatusBadRequest, codeInvalidParams, message, data)
}

func writeError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	status := rpcErr.status
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxRequestBodyBytes)
		}
		s.respondError(w, "", nil, newError(status, codeInvalidRequest, message, err.Error()))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		s.respondError(w, "", nil, newError(http.StatusBadRequest, codeInvalidRequest, "request body required", nil))
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		s.respondError(w, "", nil, newError(http.StatusBadRequest, codeParseError, "invalid JSON payload", err.Error()))
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		s.respondError(w, req.Method, req.ID, newError(http.StatusBadRequest, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC))
		return
	}
	if req.Method == "" {
		s.respondError(w, "", req.ID, newError(http.StatusBadRequest, codeInvalidRequest, "method required", nil))
		return
	}
	h, ok := s.methods[req.Method]
	if !ok {
		s.respondError(w, req.Method, req.ID, newError(http.StatusNotFound, codeMethodNotFound, "method not found", req.Method))
		return
	}
	if h.write {
		if authErr := s.auth.authorize(r); authErr != nil {
			s.logger.Warn("rpc write rejected",
				slog.String("method", req.Method),
				slog.String("source", s.limiter.clientSource(r)),
				logging.MaskField("authorization", r.Header.Get("Authorization")))
			s.respondError(w, req.Method, req.ID, authErr)
			return
		}
	}

	result, rpcErr := h.fn(r.Context(), req.Params)
	if rpcErr != nil {
		s.respondError(w, req.Method, req.ID, rpcErr)
		return
	}
	s.metrics.ObserveRPC(req.Method, 0)
	writeResult(w, req.ID, result)
}

func (s *Server) respondError(w http.ResponseWriter, method string, id interface{}, rpcErr *RPCError) {
	if method == "" {
		method = "invalid"
	}
	s.metrics.ObserveRPC(method, rpcErr.Code)
	if rpcErr.Code == codeServerError {
		s.logger.Error("rpc request failed", slog.String("method", method), slog.Int("code", rpcErr.Code), slog.Any("data", rpcErr.Data))
	}
	writeError(w, id, rpcErr)
}

// decodeParams unmarshals the single parameter object every method takes.
func decodeParams(params []json.RawMessage, out interface{}) *RPCError {
	if len(params) != 1 {
		return invalidParams("exactly one parameter object expected", nil)
	}
	dec := json.NewDecoder(bytes.NewReader(params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalidParams("invalid parameter object", err.Error())
	}
	return nil
}
