package commands

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/stepper/pkg/commands/options"
	"tableflip.dev/stepper/pkg/runner/mcp"
	"tableflip.dev/stepper/pkg/store"
)

func addMCP(topLevel *cobra.Command) {
	mo := &options.MCPOptions{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "start the Model Context Protocol server",
		Long: options.Wrap80(`Launch an MCP server that forwards reset_counter, get_current_steps,
switch_to_pet_window, switch_to_main_window and open_devtools to the running
daemon and serves recorded day totals as the step_history tool and the
stepper://history resource.`),
		Example: `
stepper mcp
stepper mcp --transport stdio
stepper mcp --http-port 0 --addr 127.0.0.1:7500
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			client, err := do.Client()
			if err != nil {
				return err
			}
			persistence, err := store.Load(nil)
			if err != nil {
				return err
			}

			runner := mcp.Runner{
				Commander:        client,
				Persistence:      persistence,
				Name:             "stepper",
				Version:          version,
				HTTPEndpointPath: mo.EndpointPath(),
				HTTPServerCert:   strings.TrimSpace(mo.TLSCert),
				HTTPServerKey:    strings.TrimSpace(mo.TLSKey),
			}

			switch strings.ToLower(strings.TrimSpace(mo.Transport)) {
			case "", string(mcp.TransportHTTP):
				addr, err := mo.ListenAddr()
				if err != nil {
					return err
				}
				runner.Transport = mcp.TransportHTTP
				runner.HTTPListenAddr = addr
				runner.OnHTTPListening = func(a net.Addr) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "MCP HTTP server listening on %s\n", mo.URL(a))
				}
			case string(mcp.TransportStdio):
				runner.Transport = mcp.TransportStdio
			default:
				return fmt.Errorf("unsupported transport %q (expected http or stdio)", mo.Transport)
			}

			return runner.Do(cmd.Context())
		},
	}

	options.AddMCPArgs(cmd, mo)

	topLevel.AddCommand(cmd)
}
