package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/stepper/pkg/bus"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerResetTool(srv, svc)
	registerCurrentStepsTool(srv, svc)
	registerSwitchWindowTool(srv, bus.CommandSwitchToPetWindow, "Bring the pet window to the front.", svc.ShowPet)
	registerSwitchWindowTool(srv, bus.CommandSwitchToMainWindow, "Bring the step card window to the front.", svc.ShowMain)
	registerDevtoolsTool(srv, svc)
	registerHistoryTool(srv, svc)
}

func registerResetTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		bus.CommandResetCounter,
		mcp.WithDescription("Reset the step counter to zero. Daily history is kept."),
	)
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := svc.Reset(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"steps": 0})
	})
}

func registerCurrentStepsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		bus.CommandGetCurrentSteps,
		mcp.WithDescription("Read the current step count from the running daemon."),
	)
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, err := svc.CurrentSteps(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"steps": n})
	})
}

func registerSwitchWindowTool(srv *server.MCPServer, name, description string, fn func(context.Context) error) {
	tool := mcp.NewTool(name, mcp.WithDescription(description))
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := fn(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("ok"), nil
	})
}

func registerDevtoolsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		bus.CommandOpenDevtools,
		mcp.WithDescription("Attach developer tools to the main window, or the pet window when there is no main window."),
	)
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := svc.OpenDevtools(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(res)
	})
}

func registerHistoryTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"step_history",
		mcp.WithDescription("List recorded daily step totals, oldest first."),
		mcp.WithNumber("days",
			mcp.Description("Only return the most recent N days (default all)."),
			mcp.Min(1),
			mcp.Max(3660),
		),
	)
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sum, err := svc.History(ctx, request.GetInt("days", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(sum)
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return result, nil
}
