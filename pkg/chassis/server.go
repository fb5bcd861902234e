// Package chassis runs the voxsearch HTTP surface and, with TLS, the QUIC side
// on the same port number:
//   - TCP -> HTTP/1.1 + HTTP/2 (TLS): search and session REST API
//   - UDP -> QUIC with ALPN demux:
//     "h3"               -> HTTP/3 (same handler as TCP)
//     "voxsearch-mcp-v1" -> MCP JSON-RPC over QUIC stream
//
// TLS responses carry an Alt-Svc header advertising HTTP/3.
// Without cert files a self-signed ECDSA P-256 cert is generated.
// Plain mode serves HTTP/1.1 on TCP only.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/hazyhaar/voxsearch/pkg/mcpquic"
)

// Config holds configuration for the chassis server.
type Config struct {
	Addr      string            // listen address (e.g. ":8420"), TCP and UDP share the port
	Plain     bool              // plain HTTP on TCP, no TLS and no QUIC
	TLS       *tls.Config       // nil = load CertFile/KeyFile or generate a dev cert
	CertFile  string
	KeyFile   string
	Handler   http.Handler      // API mux
	MCPServer *server.MCPServer // nil = MCP over QUIC disabled
	Logger    *slog.Logger
}

// Server owns the TCP listener and, unless plain, the QUIC listener.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	tlsCfg     *tls.Config
	mcpHandler *mcpquic.Handler

	ready chan struct{}

	mu      sync.Mutex
	httpSrv *http.Server
	h3Srv   *http3.Server
	quicLn  *quic.Listener
	tcpAddr net.Addr
	udpAddr net.Addr
}

// New prepares a server; nothing is bound until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler == nil {
		return nil, errors.New("chassis: handler is required")
	}

	s := &Server{cfg: cfg, logger: cfg.Logger, ready: make(chan struct{})}
	if cfg.Plain {
		return s, nil
	}

	tlsCfg, err := s.loadTLS()
	if err != nil {
		return nil, err
	}
	s.tlsCfg = tlsCfg
	if cfg.MCPServer != nil {
		s.mcpHandler = mcpquic.NewHandler(cfg.MCPServer, cfg.Logger)
	}
	return s, nil
}

func (s *Server) loadTLS() (*tls.Config, error) {
	switch {
	case s.cfg.TLS != nil:
		return s.cfg.TLS, nil
	case s.cfg.CertFile != "" && s.cfg.KeyFile != "":
		tlsCfg, err := ProductionTLSConfig(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS cert: %w", err)
		}
		s.logger.Info("TLS: production certs loaded")
		return tlsCfg, nil
	default:
		tlsCfg, err := DevelopmentTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("generate dev TLS: %w", err)
		}
		s.logger.Info("TLS: self-signed dev cert generated")
		return tlsCfg, nil
	}
}

// Ready is closed once the listeners are bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// TCPAddr returns the bound TCP address, or nil before Ready.
func (s *Server) TCPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tcpAddr
}

// UDPAddr returns the bound QUIC address, or nil in plain mode.
func (s *Server) UDPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.udpAddr
}

// securityHeaders wraps an http.Handler and adds standard security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'")
		// Browser clients capture speech themselves and post recognizer events.
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(self), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

// altSvc advertises HTTP/3 on the given UDP port.
func altSvc(port int, next http.Handler) http.Handler {
	value := fmt.Sprintf(`h3=":%d"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", value)
		next.ServeHTTP(w, r)
	})
}

// Start binds the listeners and serves until ctx is cancelled or a listener
// fails. With TLS the UDP socket is bound first and TCP takes the same port,
// so ":0" yields one shared random port.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Plain {
		return s.startPlain(ctx)
	}

	ln, err := quic.ListenAddr(s.cfg.Addr, s.tlsCfg, mcpquic.ProductionQUICConfig())
	if err != nil {
		return fmt.Errorf("QUIC listen: %w", err)
	}
	udpAddr := ln.Addr().(*net.UDPAddr)

	tcpTLS := s.tlsCfg.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}
	host, _, _ := net.SplitHostPort(s.cfg.Addr)
	tcpLn, err := tls.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(udpAddr.Port)), tcpTLS)
	if err != nil {
		ln.Close()
		return fmt.Errorf("TCP listen: %w", err)
	}

	handler := securityHeaders(altSvc(udpAddr.Port, s.cfg.Handler))
	s.mu.Lock()
	s.quicLn = ln
	s.h3Srv = &http3.Server{Handler: handler}
	s.httpSrv = &http.Server{Handler: handler, TLSConfig: tcpTLS, ReadHeaderTimeout: 10 * time.Second}
	s.tcpAddr, s.udpAddr = tcpLn.Addr(), udpAddr
	httpSrv := s.httpSrv
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("chassis started",
		"tcp", tcpLn.Addr().String(),
		"udp", udpAddr.String(),
		"mcp", s.mcpHandler != nil,
	)

	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.Serve(tcpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("TCP: %w", err)
		}
	}()
	go s.acceptQUIC(ctx, ln, errCh)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) startPlain(ctx context.Context) error {
	tcpLn, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("TCP listen: %w", err)
	}

	s.mu.Lock()
	s.httpSrv = &http.Server{Handler: securityHeaders(s.cfg.Handler), ReadHeaderTimeout: 10 * time.Second}
	s.tcpAddr = tcpLn.Addr()
	httpSrv := s.httpSrv
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("voxsearch listening", "addr", tcpLn.Addr().String(), "tls", false)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(tcpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("TCP: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// acceptQUIC demuxes incoming QUIC connections by negotiated ALPN.
func (s *Server) acceptQUIC(ctx context.Context, ln *quic.Listener, errCh chan<- error) {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			errCh <- fmt.Errorf("QUIC accept: %w", err)
			return
		}
		s.route(ctx, conn)
	}
}

func (s *Server) route(ctx context.Context, conn *quic.Conn) {
	alpn := conn.ConnectionState().TLS.NegotiatedProtocol
	switch {
	case alpn == "h3":
		go func() {
			if err := s.h3Srv.ServeQUICConn(conn); err != nil {
				s.logger.Debug("HTTP/3 conn done", "remote", conn.RemoteAddr(), "error", err)
			}
		}()
	case alpn == mcpquic.ALPNProtocolMCP && s.mcpHandler != nil:
		go s.mcpHandler.ServeConn(ctx, conn)
	case alpn == mcpquic.ALPNProtocolMCP:
		conn.CloseWithError(mcpquic.ConnErrorMCPDisabled, "MCP not enabled")
	default:
		s.logger.Warn("unknown ALPN, closing", "alpn", alpn, "remote", conn.RemoteAddr())
		conn.CloseWithError(mcpquic.ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
	}
}

// Stop shuts down every listener that was started. Calling it before Start
// is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.httpSrv != nil {
		errs = append(errs, s.httpSrv.Shutdown(ctx))
	}
	if s.h3Srv != nil {
		errs = append(errs, s.h3Srv.Close())
	}
	if s.quicLn != nil {
		errs = append(errs, s.quicLn.Close())
	}
	if s.httpSrv != nil {
		s.logger.Info("chassis stopped")
	}
	return errors.Join(errs...)
}
