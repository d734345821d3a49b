package rpc

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

const maxTrackedClients = 10_000

// rateLimiter applies a token bucket per client address. X-Forwarded-For is
// honoured only when the direct peer is a trusted proxy.
type rateLimiter struct {
	limit   rate.Limit
	burst   int
	trusted []*net.IPNet

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

func newRateLimiter(perSecond float64, burst int, trusted []*net.IPNet) *rateLimiter {
	if perSecond <= 0 {
		return &rateLimiter{trusted: trusted}
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		trusted: trusted,
		clients: make(map[string]*rate.Limiter),
	}
}

func (l *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.limit == 0 {
			next.ServeHTTP(w, r)
			return
		}
		source := l.clientSource(r)
		if !l.allow(source) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(RPCResponse{
				JSONRPC: jsonRPCVersion,
				Error:   &RPCError{Code: codeRateLimited, Message: "rate limit exceeded", Data: source},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *rateLimiter) allow(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.clients[source]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.clients = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[source] = limiter
	}
	return limiter.Allow()
}

func (l *rateLimiter) clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !l.isTrusted(host) {
		return host
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if candidate := strings.TrimSpace(first); candidate != "" {
			return candidate
		}
	}
	return host
}

func (l *rateLimiter) isTrusted(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range l.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func parseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	out := make([]*net.IPNet, 0, len(entries))
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil && ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("rpc: trusted proxy %q: %w", raw, err)
		}
		out = append(out, n)
	}
	return out, nil
}
