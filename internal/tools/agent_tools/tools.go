package agent_tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tools/common"
)

// Tool names.
const (
	ToolProcessEmail    = "todoagent_process_email"
	ToolProcessQuery    = "todoagent_process_query"
	ToolRunBatch        = "todoagent_run_batch"
	ToolGetStats        = "todoagent_get_stats"
	ToolResetStats      = "todoagent_reset_stats"
	ToolListRules       = "todoagent_list_rules"
	ToolAddRule         = "todoagent_add_rule"
	ToolUpdateRule      = "todoagent_update_rule"
	ToolDeleteRule      = "todoagent_delete_rule"
	ToolRuleSuggestions = "todoagent_rule_suggestions"
	ToolAIStats         = "todoagent_ai_stats"
	ToolClearAIHistory  = "todoagent_clear_ai_history"
	ToolSchedulerStatus = "todoagent_scheduler_status"
	ToolListTaskLists   = "todoagent_list_task_lists"
	ToolPreviewQuery    = "todoagent_preview_query"
	defaultQueryMax     = 10
	maxQueryEmails      = 100
)

// RegisterAgentTools registers the agent tools with the MCP server. In
// read-only mode only tools that do not touch Gmail, the task list or the
// agent state are registered.
func RegisterAgentTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc == nil || sc.Agent() == nil {
		return fmt.Errorf("server context has no agent")
	}

	registerReadTools(s, sc)
	if readOnly {
		return nil
	}
	registerWriteTools(s, sc)
	return nil
}

func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	s.AddTool(mcp.NewTool(ToolGetStats,
		mcp.WithDescription("Get processing, rule, AI and scheduler statistics for this session"),
	), common.InstrumentedToolHandler(ToolGetStats, sc, handleGetStats(sc)))

	s.AddTool(mcp.NewTool(ToolListRules,
		mcp.WithDescription("List classification rules ordered by priority, with match counts"),
		mcp.WithBoolean("activeOnly",
			mcp.Description("Only list active rules (default: false)"),
		),
	), common.InstrumentedToolHandler(ToolListRules, sc, handleListRules(sc)))

	s.AddTool(mcp.NewTool(ToolRuleSuggestions,
		mcp.WithDescription("Suggest sender rules learned from repeated, confident AI classifications"),
	), common.InstrumentedToolHandler(ToolRuleSuggestions, sc, handleRuleSuggestions(sc)))

	s.AddTool(mcp.NewTool(ToolAIStats,
		mcp.WithDescription("Get AI classification statistics and per-sender patterns"),
	), common.InstrumentedToolHandler(ToolAIStats, sc, handleAIStats(sc)))

	s.AddTool(mcp.NewTool(ToolSchedulerStatus,
		mcp.WithDescription("Get the batch scheduler state: running, last and next run, per-run counts"),
	), common.InstrumentedToolHandler(ToolSchedulerStatus, sc, handleSchedulerStatus(sc)))

	s.AddTool(mcp.NewTool(ToolPreviewQuery,
		mcp.WithDescription("Show what processing would decide for the emails matching a query, without writing labels or creating tasks. Undecided emails are sent to the AI classifier when it is configured"),
		mcp.WithString("query",
			mcp.Description("Gmail search query (default: the scheduler's base query)"),
		),
		mcp.WithNumber("maxEmails",
			mcp.Description(fmt.Sprintf("Maximum number of emails to preview (default: %d, max: %d)", defaultQueryMax, maxQueryEmails)),
		),
	), common.InstrumentedToolHandler(ToolPreviewQuery, sc, handlePreviewQuery(sc)))

	s.AddTool(mcp.NewTool(ToolListTaskLists,
		mcp.WithDescription("List the Google Tasks task lists tasks can be created in"),
	), common.InstrumentedToolHandler(ToolListTaskLists, sc, handleListTaskLists(sc)))
}

func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	s.AddTool(mcp.NewTool(ToolProcessEmail,
		mcp.WithDescription("Process one or more emails: apply rules or AI classification and create tasks for actionable ones"),
		mcp.WithString("emailIds",
			mcp.Required(),
			mcp.Description("Gmail message ID (string), comma-separated IDs or array of IDs"),
		),
	), common.InstrumentedToolHandler(ToolProcessEmail, sc, handleProcessEmail(sc)))

	s.AddTool(mcp.NewTool(ToolProcessQuery,
		mcp.WithDescription("Process the emails matching a Gmail search query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Gmail search query (e.g., 'in:inbox is:unread -label:TodoAgent_Processed')"),
		),
		mcp.WithNumber("maxEmails",
			mcp.Description(fmt.Sprintf("Maximum number of emails to process (default: %d, max: %d)", defaultQueryMax, maxQueryEmails)),
		),
	), common.InstrumentedToolHandler(ToolProcessQuery, sc, handleProcessQuery(sc)))

	s.AddTool(mcp.NewTool(ToolRunBatch,
		mcp.WithDescription("Run one batch cycle over unprocessed inbox emails now"),
		mcp.WithNumber("maxEmails",
			mcp.Description("Cap for this run only (default: the configured batch size)"),
		),
	), common.InstrumentedToolHandler(ToolRunBatch, sc, handleRunBatch(sc)))

	s.AddTool(mcp.NewTool(ToolResetStats,
		mcp.WithDescription("Reset the processing counters of this session"),
	), common.InstrumentedToolHandler(ToolResetStats, sc, handleResetStats(sc)))

	s.AddTool(mcp.NewTool(ToolAddRule, ruleOptions(true,
		mcp.WithDescription("Add a classification rule"),
	)...), common.InstrumentedToolHandler(ToolAddRule, sc, handleAddRule(sc)))

	s.AddTool(mcp.NewTool(ToolUpdateRule, ruleOptions(false,
		mcp.WithDescription("Update a classification rule; omitted fields keep their value"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Rule ID"),
		),
	)...), common.InstrumentedToolHandler(ToolUpdateRule, sc, handleUpdateRule(sc)))

	s.AddTool(mcp.NewTool(ToolDeleteRule,
		mcp.WithDescription("Delete a classification rule"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Rule ID"),
		),
	), common.InstrumentedToolHandler(ToolDeleteRule, sc, handleDeleteRule(sc)))

	s.AddTool(mcp.NewTool(ToolClearAIHistory,
		mcp.WithDescription("Forget the AI classification history used for statistics and rule suggestions"),
	), common.InstrumentedToolHandler(ToolClearAIHistory, sc, handleClearAIHistory(sc)))
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
