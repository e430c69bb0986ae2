package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Agentgate MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAssessTransaction = mcp.NewTool("assess_transaction",
	mcp.WithDescription(
		"Score a pending agent-initiated purchase for fraud risk before executing it. "+
			"Returns a 0-100 risk score, a low/medium/high level, and the reasons behind the score. "+
			"Low means auto-approve, medium means step-up verification, high means block. "+
			"At least one of customer_phone or customer_email is required."),
	mcp.WithString("transaction_id",
		mcp.Required(),
		mcp.Description("Your identifier for this transaction (e.g. 'txn_abc123')")),
	mcp.WithString("merchant_id",
		mcp.Required(),
		mcp.Description("The merchant receiving the payment")),
	mcp.WithNumber("amount",
		mcp.Required(),
		mcp.Description("Order total in the transaction currency")),
	mcp.WithString("currency",
		mcp.Description("ISO currency code (default 'USD')")),
	mcp.WithString("customer_phone",
		mcp.Description("Customer phone number, ideally E.164 (e.g. '+14155551234')")),
	mcp.WithString("customer_email",
		mcp.Description("Customer email address")),
	mcp.WithString("customer_name",
		mcp.Description("Customer display name")),
	mcp.WithString("agent_platform",
		mcp.Description("The AI platform the agent runs on (e.g. 'retell', 'vapi', 'chatgpt')")),
	mcp.WithString("input_type",
		mcp.Description("How the order reached the merchant: 'link' or 'direct'"),
		mcp.Enum("link", "direct")),
)

var ToolGetAssessment = mcp.NewTool("get_assessment",
	mcp.WithDescription(
		"Retrieve a previously recorded risk assessment by its id. "+
			"Shows the stored score, level, collected signals, and review state."),
	mcp.WithString("assessment_id",
		mcp.Required(),
		mcp.Description("The assessment id returned by assess_transaction (e.g. 'risk_...')")),
)

var ToolListHighRisk = mcp.NewTool("list_high_risk",
	mcp.WithDescription(
		"List high-risk assessments that have not yet been reviewed by an operator, newest first. "+
			"Use this to find transactions waiting in the review queue."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of assessments to return (default 20)")),
)

var ToolGetPlatformReputation = mcp.NewTool("get_platform_reputation",
	mcp.WithDescription(
		"Get the reputation profile for an AI agent platform: base trust score, "+
			"observed transaction counts, and fraud/chargeback/success rates. "+
			"Unknown platforms get a low default score."),
	mcp.WithString("platform",
		mcp.Required(),
		mcp.Description("The platform name (e.g. 'retell', 'vapi', 'bland')")),
)

var ToolGetRiskStats = mcp.NewTool("get_risk_stats",
	mcp.WithDescription(
		"Get aggregate assessment statistics: totals per risk level, average score, "+
			"and the number of assessments pending review."),
	mcp.WithString("since",
		mcp.Description("Window start as an RFC3339 timestamp or a duration like '24h' (default 24h)")),
)

var ToolListBlocked = mcp.NewTool("list_blocked",
	mcp.WithDescription(
		"List customers on the block list, newest first. "+
			"Blocked identifiers fail every assessment with a score of 100. "+
			"Requires the server's admin secret to be configured."),
)

var ToolRecordOutcome = mcp.NewTool("record_outcome",
	mcp.WithDescription(
		"Report how a transaction settled: completed, failed, chargeback, or fraud. "+
			"Outcomes feed the platform reputation counters and the customer's history, "+
			"so reporting them improves future scoring."),
	mcp.WithString("transaction_id",
		mcp.Required(),
		mcp.Description("The transaction this outcome belongs to")),
	mcp.WithString("outcome",
		mcp.Required(),
		mcp.Description("The settlement result"),
		mcp.Enum("completed", "failed", "chargeback", "fraud")),
	mcp.WithString("agent_platform",
		mcp.Description("The AI platform that initiated the transaction")),
)
