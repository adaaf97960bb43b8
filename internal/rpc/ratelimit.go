package rpc

import (
	"context"
	"net"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/observability"
)

// PeerLimiter throttles the listed methods per client host. Each host gets
// its own token bucket.
type PeerLimiter struct {
	limit   rate.Limit
	burst   int
	methods map[string]bool

	mu    sync.Mutex
	peers map[string]*rate.Limiter
}

// NewPeerLimiter allows each host perSecond calls with bursts of burst to
// the named methods, or to every method when none are named.
func NewPeerLimiter(perSecond float64, burst int, methods ...string) *PeerLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &PeerLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		peers: make(map[string]*rate.Limiter),
	}
	if len(methods) > 0 {
		l.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			l.methods[m] = true
		}
	}
	return l
}

// Allow reports whether host may make one more call now.
func (l *PeerLimiter) Allow(host string) bool {
	l.mu.Lock()
	lim, ok := l.peers[host]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.peers[host] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// UnaryServerInterceptor rejects throttled calls with ResourceExhausted. A
// nil limiter lets everything through.
func (l *PeerLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if l == nil {
			return handler(ctx, req)
		}
		if _, method := observability.SplitMethod(info.FullMethod); l.methods != nil && !l.methods[method] {
			return handler(ctx, req)
		}
		host := peerHost(ctx)
		if !l.Allow(host) {
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", host)
		}
		return handler(ctx, req)
	}
}

func peerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
