// Package main runs an MCP server over stdio that exposes the Redo AI
// filter catalogs, prompt assembly and composite rendering as tools, so an
// assistant can plan and preview a transformation without calling the
// image model.
package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/logging"
)

func main() {
	// stdout carries the protocol. logging.Init writes to stderr.
	logging.Init()

	server := mcp.NewServer(&mcp.Implementation{Name: "redo-ai", Version: "v1"}, nil)
	registerTools(server, composite.NewRenderer(composite.Options{}))

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatal().Err(err).Msg("MCP server stopped")
	}
}
