package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/stepper/pkg/store"
)

// Transport selects how the MCP server is reached.
type Transport string

const (
	TransportHTTP  Transport = "http"
	TransportStdio Transport = "stdio"
)

const (
	defaultHTTPAddr = "127.0.0.1:7420"
	defaultHTTPPath = "/mcp"
	shutdownTimeout = 5 * time.Second
)

// Runner serves the step tools until its context ends.
type Runner struct {
	// Commander reaches the daemon; usually a *bus.Client.
	Commander Commander
	// Persistence is optional and backs step_history.
	Persistence store.Persistence
	Name        string
	Version     string

	Transport Transport

	HTTPListenAddr   string
	HTTPEndpointPath string
	HTTPServerCert   string
	HTTPServerKey    string
	// OnHTTPListening receives the bound address before requests are served.
	OnHTTPListening func(net.Addr)

	// Stdin and Stdout default to the process streams for TransportStdio.
	Stdin  io.Reader
	Stdout io.Writer
}

// Do serves on the configured transport.
func (r Runner) Do(ctx context.Context) error {
	if r.Commander == nil {
		return errors.New("mcp runner requires a daemon connection")
	}
	srv := r.server()

	switch r.Transport {
	case "", TransportHTTP:
		return r.serveHTTP(ctx, srv)
	case TransportStdio:
		return r.serveStdio(ctx, srv)
	}
	return fmt.Errorf("unknown MCP transport %q", r.Transport)
}

func (r Runner) server() *server.MCPServer {
	name, version := r.Name, r.Version
	if name == "" {
		name = "stepper"
	}
	if version == "" {
		version = "dev"
	}
	srv := server.NewMCPServer(
		name+" MCP",
		version,
		server.WithResourceCapabilities(false, false),
		server.WithToolCapabilities(false),
		server.WithInstructions("Read and reset the mouse step counter, switch its windows and browse daily step history."),
		server.WithResourceRecovery(),
		server.WithRecovery(),
	)
	svc := NewService(r.Commander, r.Persistence)
	registerResources(srv, svc)
	registerTools(srv, svc)
	return srv
}

func (r Runner) serveStdio(ctx context.Context, srv *server.MCPServer) error {
	in, out := r.Stdin, r.Stdout
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	err := server.NewStdioServer(srv).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (r Runner) serveHTTP(ctx context.Context, srv *server.MCPServer) error {
	tls := r.HTTPServerCert != "" || r.HTTPServerKey != ""
	if tls && (r.HTTPServerCert == "" || r.HTTPServerKey == "") {
		return errors.New("both http tls cert and key must be provided")
	}
	path := r.HTTPEndpointPath
	if path == "" {
		path = defaultHTTPPath
	}
	addr := r.HTTPListenAddr
	if addr == "" {
		addr = defaultHTTPAddr
	}

	mux := http.NewServeMux()
	mux.Handle(path, server.NewStreamableHTTPServer(srv, server.WithEndpointPath(path)))
	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mcp: listen: %w", err)
	}
	if r.OnHTTPListening != nil {
		r.OnHTTPListening(ln.Addr())
	}

	errc := make(chan error, 1)
	go func() {
		if tls {
			errc <- httpSrv.ServeTLS(ln, r.HTTPServerCert, r.HTTPServerKey)
			return
		}
		errc <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
