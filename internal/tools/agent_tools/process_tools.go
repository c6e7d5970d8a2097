package agent_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/todoagent/internal/agent"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tools/batch"
	"github.com/teemow/todoagent/internal/tools/common"
)

func handleProcessEmail(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		ids, err := batch.ParseIDs(args["emailIds"], "emailIds")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results := batch.Process(ctx, ids, sc.Agent().ProcessEmail)
		return mcp.NewToolResultText(batch.FormatResults(results)), nil
	}
}

func handleProcessQuery(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		query, err := common.RequiredStringArg(args, "query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		maxEmails, err := queryLimit(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		processed, err := sc.Agent().ProcessEmails(ctx, query, maxEmails)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to process query: %v", err)), nil
		}
		results := make([]batch.Result, 0, len(processed))
		for _, r := range processed {
			results = append(results, batch.FromPipeline(r))
		}
		return mcp.NewToolResultText(batch.FormatResults(results)), nil
	}
}

func handlePreviewQuery(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		maxEmails, err := queryLimit(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		previews, err := sc.Agent().PreviewEmails(ctx, common.StringArg(args, "query"), maxEmails)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to preview query: %v", err)), nil
		}
		if previews == nil {
			previews = []agent.Preview{}
		}
		return jsonResult(previews)
	}
}

// queryLimit reads maxEmails for query tools.
func queryLimit(args map[string]any) (int, error) {
	maxEmails, ok, err := common.IntArg(args, "maxEmails")
	if err != nil {
		return 0, err
	}
	if !ok {
		return defaultQueryMax, nil
	}
	if maxEmails < 1 || maxEmails > maxQueryEmails {
		return 0, fmt.Errorf("maxEmails must be between 1 and %d", maxQueryEmails)
	}
	return maxEmails, nil
}

func handleRunBatch(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		maxEmails, _, err := common.IntArg(request.GetArguments(), "maxEmails")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if maxEmails < 0 {
			return mcp.NewToolResultError("maxEmails must not be negative"), nil
		}

		st := sc.Agent().RunManual(ctx, maxEmails)
		if st.LastError != "" {
			return mcp.NewToolResultError(fmt.Sprintf("Batch run failed: %s", st.LastError)), nil
		}
		return jsonResult(st)
	}
}
