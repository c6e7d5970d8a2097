package agent_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/todoagent/internal/classifier"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
	"github.com/teemow/todoagent/internal/tools/common"
)

func handleGetStats(sc *server.ServerContext) common.ToolHandler {
	return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(sc.Agent().Stats())
	}
}

func handleResetStats(sc *server.ServerContext) common.ToolHandler {
	return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sc.Agent().ResetStats()
		return mcp.NewToolResultText("Processing statistics reset"), nil
	}
}

type aiStatsResponse struct {
	Available      bool                       `json:"available"`
	Stats          classifier.Stats           `json:"stats"`
	SenderPatterns []classifier.SenderPattern `json:"senderPatterns"`
}

func handleAIStats(sc *server.ServerContext) common.ToolHandler {
	return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		a := sc.Agent()
		patterns := a.SenderPatterns()
		if patterns == nil {
			patterns = []classifier.SenderPattern{}
		}
		return jsonResult(aiStatsResponse{
			Available:      a.AIAvailable(),
			Stats:          a.AIStats(),
			SenderPatterns: patterns,
		})
	}
}

func handleClearAIHistory(sc *server.ServerContext) common.ToolHandler {
	return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sc.Agent().ClearAIHistory()
		return mcp.NewToolResultText("AI classification history cleared"), nil
	}
}

func handleSchedulerStatus(sc *server.ServerContext) common.ToolHandler {
	return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(sc.Agent().SchedulerStats())
	}
}

func handleListTaskLists(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lists, err := sc.Agent().TaskLists(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list task lists: %v", err)), nil
		}
		if lists == nil {
			lists = []tasks.TaskList{}
		}
		return jsonResult(lists)
	}
}
