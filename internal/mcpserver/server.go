package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Agentgate tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("agentgate", "1.0.0")
	client := NewAgentgateClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolAssessTransaction, h.HandleAssessTransaction)
	s.AddTool(ToolGetAssessment, h.HandleGetAssessment)
	s.AddTool(ToolListHighRisk, h.HandleListHighRisk)
	s.AddTool(ToolGetPlatformReputation, h.HandleGetPlatformReputation)
	s.AddTool(ToolGetRiskStats, h.HandleGetRiskStats)
	s.AddTool(ToolListBlocked, h.HandleListBlocked)
	s.AddTool(ToolRecordOutcome, h.HandleRecordOutcome)

	return s
}
