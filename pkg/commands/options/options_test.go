package options

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPEndpointPath(t *testing.T) {
	for in, want := range map[string]string{"": "/mcp", "  ": "/mcp", "rpc": "/rpc", "/x/y": "/x/y"} {
		o := &MCPOptions{Path: in}
		assert.Equal(t, want, o.EndpointPath(), in)
	}
}

func TestMCPListenAddr(t *testing.T) {
	o := &MCPOptions{Port: 7420}
	addr, err := o.ListenAddr()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7420", addr)

	o = &MCPOptions{Host: "::1", Port: 0}
	addr, err = o.ListenAddr()
	require.NoError(t, err)
	assert.Equal(t, "[::1]:0", addr)

	_, err = (&MCPOptions{Port: 70000}).ListenAddr()
	assert.Error(t, err)
}

func TestMCPURL(t *testing.T) {
	bound := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 51234}
	o := &MCPOptions{Host: "0.0.0.0", Path: "mcp"}
	assert.Equal(t, "http://127.0.0.1:51234/mcp", o.URL(bound))

	o = &MCPOptions{Host: "::", TLSCert: "c.pem", TLSKey: "k.pem"}
	assert.Equal(t, "https://127.0.0.1:51234/mcp", o.URL(bound))

	o = &MCPOptions{Host: "::1"}
	assert.Equal(t, "http://[::1]:51234/mcp", o.URL(&net.TCPAddr{IP: net.IPv6loopback, Port: 51234}))
}

func TestHandleErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	prev := color.Output
	color.Output = &buf
	defer func() { color.Output = prev }()

	o := &OutputOptions{JSON: true}
	assert.NoError(t, o.HandleError(errors.New("boom")))
	assert.JSONEq(t, `{"error":"boom"}`, buf.String())

	o = &OutputOptions{}
	assert.EqualError(t, o.HandleError(errors.New("boom")), "boom")
}

func TestOutputFormat(t *testing.T) {
	assert.Equal(t, "json", (&OutputOptions{JSON: true, Format: "yaml"}).Output())
	assert.Equal(t, "yaml", (&OutputOptions{Format: "yaml"}).Output())
	assert.Equal(t, "", (&OutputOptions{}).Output())
}

func TestWrap(t *testing.T) {
	got := Wrap("one two\n  three four", 9)
	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len(line), 9)
	}
	assert.Equal(t, "one two three four", strings.Join(strings.Fields(got), " "))
}
