package options

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// MCPOptions
type MCPOptions struct {
	Transport string
	Host      string
	Port      int
	Path      string
	TLSCert   string
	TLSKey    string
}

func AddMCPArgs(cmd *cobra.Command, o *MCPOptions) {
	cmd.Flags().StringVar(&o.Transport, "transport", "http", "transport to use: http or stdio")
	cmd.Flags().StringVar(&o.Host, "http-host", "127.0.0.1", "host/interface for HTTP transport")
	cmd.Flags().IntVar(&o.Port, "http-port", 7420, "port for HTTP transport (use 0 for random)")
	cmd.Flags().StringVar(&o.Path, "http-path", "/mcp", "HTTP endpoint path")
	cmd.Flags().StringVar(&o.TLSCert, "http-tls-cert", "", "TLS certificate file for HTTPS")
	cmd.Flags().StringVar(&o.TLSKey, "http-tls-key", "", "TLS private key file for HTTPS")
}

// EndpointPath is the HTTP path, always with a leading slash.
func (o *MCPOptions) EndpointPath() string {
	path := strings.TrimSpace(o.Path)
	if path == "" {
		return "/mcp"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (o *MCPOptions) host() string {
	if h := strings.TrimSpace(o.Host); h != "" {
		return h
	}
	return "127.0.0.1"
}

// ListenAddr validates the port and joins it with the host.
func (o *MCPOptions) ListenAddr() (string, error) {
	if o.Port < 0 || o.Port > 65535 {
		return "", fmt.Errorf("invalid http-port %d", o.Port)
	}
	return net.JoinHostPort(o.host(), strconv.Itoa(o.Port)), nil
}

// TLS reports whether both certificate and key were given.
func (o *MCPOptions) TLS() bool {
	return strings.TrimSpace(o.TLSCert) != "" && strings.TrimSpace(o.TLSKey) != ""
}

// URL is the address clients should use once the server is bound to a.
// Wildcard hosts are replaced by the bound IP or loopback.
func (o *MCPOptions) URL(a net.Addr) string {
	scheme := "http"
	if o.TLS() {
		scheme = "https"
	}
	tcp, ok := a.(*net.TCPAddr)
	if !ok {
		return fmt.Sprintf("%s://%s%s", scheme, a.String(), o.EndpointPath())
	}
	host := o.host()
	if host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
		if tcp.IP != nil && !tcp.IP.IsUnspecified() {
			host = tcp.IP.String()
		}
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, strconv.Itoa(tcp.Port)), o.EndpointPath())
}
