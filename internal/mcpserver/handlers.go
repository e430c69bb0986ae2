package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *AgentgateClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *AgentgateClient) *Handlers {
	return &Handlers{client: client}
}

// HandleAssessTransaction scores a transaction and renders the decision.
func (h *Handlers) HandleAssessTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	txID := req.GetString("transaction_id", "")
	if txID == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}
	merchantID := req.GetString("merchant_id", "")
	if merchantID == "" {
		return mcp.NewToolResultError("merchant_id is required"), nil
	}
	phone := req.GetString("customer_phone", "")
	email := req.GetString("customer_email", "")
	if phone == "" && email == "" {
		return mcp.NewToolResultError("at least one of customer_phone or customer_email is required"), nil
	}
	amount := req.GetFloat("amount", 0)
	currency := req.GetString("currency", "USD")

	body := map[string]any{
		"transactionId": txID,
		"merchantId":    merchantID,
		"customer": map[string]any{
			"name":  req.GetString("customer_name", ""),
			"phone": phone,
			"email": email,
		},
		"totals": map[string]any{
			"total": amount,
		},
		"payment": map[string]any{
			"method":   req.GetString("input_type", "link"),
			"currency": currency,
		},
		"source": map[string]any{
			"platform":  req.GetString("agent_platform", ""),
			"inputType": req.GetString("input_type", "link"),
		},
	}

	raw, err := h.client.Assess(ctx, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Assessment failed: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessment: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetAssessment fetches a stored assessment.
func (h *Handlers) HandleGetAssessment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("assessment_id", "")
	if id == "" {
		return mcp.NewToolResultError("assessment_id is required"), nil
	}

	raw, err := h.client.GetAssessment(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get assessment: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessment: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleListHighRisk lists the unreviewed high-risk queue.
func (h *Handlers) HandleListHighRisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListHighRisk(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list high-risk assessments: %v", err)), nil
	}

	text, err := formatAssessmentList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessments: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetPlatformReputation returns one platform's reputation profile.
func (h *Handlers) HandleGetPlatformReputation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	platform := req.GetString("platform", "")
	if platform == "" {
		return mcp.NewToolResultError("platform is required"), nil
	}

	raw, err := h.client.GetReputation(ctx, platform)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get reputation: %v", err)), nil
	}

	text, err := formatReputation(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse reputation: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetRiskStats returns aggregate statistics.
func (h *Handlers) HandleGetRiskStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	since := req.GetString("since", "")

	raw, err := h.client.GetRiskStats(ctx, since)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get risk stats: %v", err)), nil
	}

	text, err := formatStats(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse stats: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleListBlocked lists block-list entries.
func (h *Handlers) HandleListBlocked(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListBlocked(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list blocked customers: %v", err)), nil
	}

	text, err := formatBlockList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse block list: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleRecordOutcome reports a settlement outcome.
func (h *Handlers) HandleRecordOutcome(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	txID := req.GetString("transaction_id", "")
	if txID == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}
	outcome := req.GetString("outcome", "")
	if outcome == "" {
		return mcp.NewToolResultError("outcome is required"), nil
	}

	body := map[string]any{
		"transactionId": txID,
		"outcome":       outcome,
	}
	if platform := req.GetString("agent_platform", ""); platform != "" {
		body["agentPlatform"] = platform
	}

	if _, err := h.client.RecordOutcome(ctx, body); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to record outcome: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Outcome recorded for %s: %s\n"+
			"The platform's reputation counters and the customer's history have been updated.",
		txID, outcome)), nil
}

// --- Formatting helpers ---

func formatAssessment(raw json.RawMessage) (string, error) {
	var wrapper struct {
		Assessment map[string]any `json:"assessment"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Assessment == nil {
		return "", fmt.Errorf("unexpected assessment response format")
	}
	return renderAssessment(wrapper.Assessment, true), nil
}

func renderAssessment(a map[string]any, full bool) string {
	score, _ := getFloat(a, "riskScore")
	level := getString(a, "riskLevel")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk Assessment %s\n", getString(a, "id"))
	fmt.Fprintf(&sb, "  Transaction: %s\n", getString(a, "transactionId"))
	fmt.Fprintf(&sb, "  Score: %.0f/100 (%s)\n", score, level)
	fmt.Fprintf(&sb, "  Decision: %s\n", decisionFor(level))

	if reasons, ok := a["reasons"].([]any); ok && len(reasons) > 0 {
		sb.WriteString("  Reasons:\n")
		for _, r := range reasons {
			if s, ok := r.(string); ok {
				fmt.Fprintf(&sb, "    - %s\n", s)
			}
		}
	}

	if !full {
		return sb.String()
	}

	if platform := getString(a, "agentPlatform"); platform != "" {
		fmt.Fprintf(&sb, "  Platform: %s\n", platform)
	}
	if reviewed, ok := a["reviewed"].(bool); ok && reviewed {
		fmt.Fprintf(&sb, "  Reviewed by %s (action: %s)\n",
			getString(a, "reviewedBy"), getString(a, "actionTaken"))
	}
	return sb.String()
}

func decisionFor(level string) string {
	switch level {
	case "low":
		return "Approve"
	case "medium":
		return "Step-up verification required"
	case "high":
		return "Block"
	default:
		return "Unknown"
	}
}

func formatAssessmentList(raw json.RawMessage) (string, error) {
	var wrapper struct {
		Assessments []map[string]any `json:"assessments"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return "", fmt.Errorf("unexpected assessments response format")
	}
	if len(wrapper.Assessments) == 0 {
		return "No unreviewed high-risk assessments. The queue is clear.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d high-risk assessment(s) awaiting review:\n\n", len(wrapper.Assessments))
	for i, a := range wrapper.Assessments {
		score, _ := getFloat(a, "riskScore")
		fmt.Fprintf(&sb, "%d. %s - transaction %s, score %.0f\n",
			i+1, getString(a, "id"), getString(a, "transactionId"), score)
		if platform := getString(a, "agentPlatform"); platform != "" {
			fmt.Fprintf(&sb, "   Platform: %s\n", platform)
		}
	}
	return sb.String(), nil
}

func formatReputation(raw json.RawMessage) (string, error) {
	var wrapper struct {
		Reputation map[string]any `json:"reputation"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Reputation == nil {
		return "", fmt.Errorf("unexpected reputation response format")
	}
	m := wrapper.Reputation

	var sb strings.Builder
	fmt.Fprintf(&sb, "Platform Reputation: %s\n", getString(m, "platform"))
	if v, ok := getFloat(m, "baseScore"); ok {
		fmt.Fprintf(&sb, "  Base score: %.0f/100\n", v)
	}
	if known, ok := m["known"].(bool); ok && !known {
		sb.WriteString("  This platform is not in the configured set; it gets the unknown-platform default.\n")
	}
	if totals, ok := m["totals"].(map[string]any); ok {
		if v, ok := getFloat(totals, "transactions"); ok && v > 0 {
			fmt.Fprintf(&sb, "  Observed transactions: %.0f\n", v)
		}
	}
	if v, ok := getFloat(m, "successRate"); ok && v > 0 {
		fmt.Fprintf(&sb, "  Success rate: %.1f%%\n", v*100)
	}
	if v, ok := getFloat(m, "fraudRate"); ok && v > 0 {
		fmt.Fprintf(&sb, "  Fraud rate: %.2f%%\n", v*100)
	}
	if v, ok := getFloat(m, "chargebackRate"); ok && v > 0 {
		fmt.Fprintf(&sb, "  Chargeback rate: %.2f%%\n", v*100)
	}
	return sb.String(), nil
}

func formatStats(raw json.RawMessage) (string, error) {
	var wrapper struct {
		Stats map[string]any `json:"stats"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Stats == nil {
		return "", fmt.Errorf("unexpected stats response format")
	}
	m := wrapper.Stats

	total, _ := getFloat(m, "total")
	low, _ := getFloat(m, "low")
	medium, _ := getFloat(m, "medium")
	high, _ := getFloat(m, "high")
	avg, _ := getFloat(m, "avgScore")
	pending, _ := getFloat(m, "pendingReview")

	var sb strings.Builder
	sb.WriteString("Assessment Statistics:\n")
	fmt.Fprintf(&sb, "  Total assessed: %.0f\n", total)
	fmt.Fprintf(&sb, "  Low (approved): %.0f | Medium (verify): %.0f | High (blocked): %.0f\n", low, medium, high)
	fmt.Fprintf(&sb, "  Average score: %.1f\n", avg)
	fmt.Fprintf(&sb, "  Pending review: %.0f\n", pending)
	return sb.String(), nil
}

func formatBlockList(raw json.RawMessage) (string, error) {
	var wrapper struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return "", fmt.Errorf("unexpected block list response format")
	}
	if len(wrapper.Entries) == 0 {
		return "The block list is empty.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d blocked customer(s):\n\n", len(wrapper.Entries))
	for i, e := range wrapper.Entries {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, getString(e, "value"), getString(e, "type"))
		if reason := getString(e, "reason"); reason != "" {
			fmt.Fprintf(&sb, "   Reason: %s\n", reason)
		}
		if by := getString(e, "addedBy"); by != "" {
			fmt.Fprintf(&sb, "   Added by: %s\n", by)
		}
	}
	return sb.String(), nil
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
