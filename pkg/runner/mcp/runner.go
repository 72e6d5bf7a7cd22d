package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/profile"
)

// Transport selects the mechanism used to expose the MCP server.
type Transport string

const (
	// TransportHTTP serves MCP via the streamable HTTP transport.
	TransportHTTP Transport = "http"
	// TransportStdio serves MCP over stdio.
	TransportStdio Transport = "stdio"
)

const instructions = `Record, browse and summarise mood events.
Use add_mood, edit_mood and delete_mood for the subject's own history and list_moods with scope "followed" for the feed.
Following is consent based: follow sends a request, and the other user answers it with answer_follow_request.
A result with "queued": true was saved locally and will reach the store once sync_pending succeeds.`

// Runner coordinates MCP server startup.
type Runner struct {
	Profile  *profile.Profile
	Registry *mood.Registry
	Name     string
	Version  string

	Transport        Transport
	HTTPListenAddr   string
	HTTPEndpointPath string
	OnHTTPListening  func(net.Addr)
	HTTPServerCert   string
	HTTPServerKey    string
}

// Run serves p over stdio until the client disconnects.
func Run(ctx context.Context, p *profile.Profile) error {
	return Runner{Profile: p, Transport: TransportStdio}.Do(ctx)
}

// NewServer builds an MCP server with every moodlog tool and resource
// registered against svc.
func NewServer(svc *Service, name, version string) *server.MCPServer {
	if name == "" {
		name = "moodlog"
	}
	if version == "" {
		version = "dev"
	}
	srv := server.NewMCPServer(
		fmt.Sprintf("%s MCP", name),
		version,
		server.WithResourceCapabilities(false, false),
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
		server.WithResourceRecovery(),
		server.WithRecovery(),
	)
	registerResources(srv, svc)
	registerTools(srv, svc)
	return srv
}

// Do executes the runner.
func (r Runner) Do(ctx context.Context) error {
	if r.Profile == nil {
		return errors.New("mcp runner requires a profile")
	}
	srv := NewServer(NewService(r.Profile, r.Registry), r.Name, r.Version)

	switch r.Transport {
	case "", TransportHTTP:
		return r.serveHTTP(ctx, srv)
	case TransportStdio:
		return server.ServeStdio(srv)
	default:
		return fmt.Errorf("unknown MCP transport %q", r.Transport)
	}
}

func (r Runner) endpoint() string {
	path := strings.TrimSpace(r.HTTPEndpointPath)
	switch {
	case path == "":
		return "/mcp"
	case !strings.HasPrefix(path, "/"):
		return "/" + path
	}
	return path
}

func (r Runner) serveHTTP(ctx context.Context, srv *server.MCPServer) error {
	tls := r.HTTPServerCert != "" || r.HTTPServerKey != ""
	if tls && (r.HTTPServerCert == "" || r.HTTPServerKey == "") {
		return errors.New("both http tls cert and key must be provided")
	}
	addr := r.HTTPListenAddr
	if addr == "" {
		addr = "127.0.0.1:8081"
	}

	mux := http.NewServeMux()
	mux.Handle(r.endpoint(), server.NewStreamableHTTPServer(srv))
	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if r.OnHTTPListening != nil {
		r.OnHTTPListening(ln.Addr())
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if tls {
		err = httpSrv.ServeTLS(ln, r.HTTPServerCert, r.HTTPServerKey)
	} else {
		err = httpSrv.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
