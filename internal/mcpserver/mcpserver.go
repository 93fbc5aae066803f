// Package mcpserver adapts an mcptools.Registry onto the wire-level MCP SDK
// server: one mcpsdk.Tool per registered tool, dispatching through
// Registry.Execute and rendering results/errors as the single JSON-content
// envelope every tool call returns.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/internal/mcptools"
)

// Implementation identifies this server to connecting MCP clients.
var Implementation = &mcpsdk.Implementation{
	Name:    "mojoassistant",
	Version: "0.1.0",
}

// Build constructs an mcpsdk.Server exposing every tool in reg.
func Build(reg *mcptools.Registry) *mcpsdk.Server {
	server := mcpsdk.NewServer(Implementation, nil)
	for _, desc := range reg.List() {
		name := desc.Name
		server.AddTool(&mcpsdk.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema,
		}, adapt(reg, name))
	}
	return server
}

// adapt turns one named registry tool into an mcpsdk.ToolHandler: decode
// the wire arguments, dispatch through Registry.Execute, and render either
// the JSON result or the apperr envelope as a single text content block.
func adapt(reg *mcptools.Registry, name string) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(apperr.Validation("arguments must be a JSON object", map[string]any{"error": err.Error()})), nil
			}
		}

		result, err := reg.Execute(ctx, name, args)
		if err != nil {
			return errorResult(err), nil
		}

		data, err := json.Marshal(result)
		if err != nil {
			return errorResult(apperr.Wrap(apperr.KindInternal, "marshalling tool result", err, nil)), nil
		}
		return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}}}, nil
	}
}

func errorResult(err error) *mcpsdk.CallToolResult {
	data, _ := json.Marshal(apperr.ToEnvelope(err))
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
		IsError: true,
	}
}

// ServeStdio runs server over stdin/stdout until the session ends or ctx is
// cancelled.
func ServeStdio(ctx context.Context, server *mcpsdk.Server) error {
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

// ServeHTTP runs server behind the SDK's streamable-HTTP handler, blocking
// until ctx is cancelled or the listener fails.
func ServeHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return server }, nil)
	httpServer := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return httpServer.Close()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("mcp http server: %w", err)
		}
		return nil
	}
}
