package agent_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/rules"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tools/common"
)

// ruleOptions are the parameters shared by add and update. Name and label
// are required when adding.
func ruleOptions(adding bool, extra ...mcp.ToolOption) []mcp.ToolOption {
	required := func(opts ...mcp.PropertyOption) []mcp.PropertyOption {
		if adding {
			return append(opts, mcp.Required())
		}
		return opts
	}

	opts := append([]mcp.ToolOption{}, extra...)
	return append(opts,
		mcp.WithString("name", required(mcp.Description("Rule name"))...),
		mcp.WithString("label", required(mcp.Description(
			"Label applied on match: "+strings.Join(ruleLabels(), ", ")))...),
		mcp.WithString("description", mcp.Description("Free-text description")),
		mcp.WithNumber("priority", mcp.Description("Evaluation priority; higher runs first (default: 5)")),
		mcp.WithNumber("taskPriority", mcp.Description("Task priority 1-4 overriding the label default")),
		mcp.WithBoolean("skipAI", mcp.Description("Never send matching emails to AI classification")),
		mcp.WithBoolean("active", mcp.Description("Whether the rule is evaluated (default: true)")),
		mcp.WithString("from", mcp.Description("Comma-separated sender substrings")),
		mcp.WithString("fromDomain", mcp.Description("Comma-separated sender domain substrings")),
		mcp.WithString("subject", mcp.Description("Comma-separated subject keywords")),
		mcp.WithString("bodyKeywords", mcp.Description("Comma-separated body keywords")),
		mcp.WithString("excludeKeywords", mcp.Description("Comma-separated keywords that veto the rule")),
	)
}

func ruleLabels() []string {
	return []string{email.LabelImportant, email.LabelUrgent, email.LabelMeeting, email.LabelTask, email.LabelSkip}
}

// applyRuleArgs overlays the provided arguments onto r.
func applyRuleArgs(r *rules.Rule, args map[string]any) error {
	if v := common.StringArg(args, "name"); v != "" {
		r.Name = v
	}
	if v := common.StringArg(args, "label"); v != "" {
		r.Action.Label = v
	}
	if _, ok := args["description"]; ok {
		r.Description = common.StringArg(args, "description")
	}

	if n, ok, err := common.IntArg(args, "priority"); err != nil {
		return err
	} else if ok {
		r.Priority = n
	}
	if n, ok, err := common.IntArg(args, "taskPriority"); err != nil {
		return err
	} else if ok {
		r.Action.Priority = n
	}
	if b, ok := common.BoolArg(args, "skipAI"); ok {
		r.Action.SkipAI = b
	}
	if b, ok := common.BoolArg(args, "active"); ok {
		r.Active = b
	}

	lists := []struct {
		name   string
		target *[]string
	}{
		{"from", &r.Criteria.From},
		{"fromDomain", &r.Criteria.FromDomain},
		{"subject", &r.Criteria.Subject},
		{"bodyKeywords", &r.Criteria.BodyKeywords},
		{"excludeKeywords", &r.Criteria.ExcludeKeywords},
	}
	for _, l := range lists {
		list, ok, err := common.StringListArg(args, l.name)
		if err != nil {
			return err
		}
		if ok {
			*l.target = list
		}
	}
	return nil
}

func handleListRules(sc *server.ServerContext) common.ToolHandler {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		activeOnly, _ := common.BoolArg(request.GetArguments(), "activeOnly")

		list := sc.Agent().Rules()
		out := make([]rules.Rule, 0, len(list))
		for _, r := range list {
			if activeOnly && !r.Active {
				continue
			}
			out = append(out, r)
		}
		return jsonResult(out)
	}
}

func handleAddRule(sc *server.ServerContext) common.ToolHandler {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r := rules.Rule{Priority: 5, Active: true}
		if err := applyRuleArgs(&r, request.GetArguments()); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		added, err := sc.Agent().AddRule(r)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to add rule: %v", err)), nil
		}
		return jsonResult(added)
	}
}

func handleUpdateRule(sc *server.ServerContext) common.ToolHandler {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		id, err := common.RequiredStringArg(args, "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a := sc.Agent()
		r, err := a.Rule(id)
		if err != nil {
			return mcp.NewToolResultError(ruleError("update", id, err)), nil
		}
		if err := applyRuleArgs(&r, args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		updated, err := a.UpdateRule(id, r)
		if err != nil {
			return mcp.NewToolResultError(ruleError("update", id, err)), nil
		}
		return jsonResult(updated)
	}
}

func handleDeleteRule(sc *server.ServerContext) common.ToolHandler {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := common.RequiredStringArg(request.GetArguments(), "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := sc.Agent().DeleteRule(id); err != nil {
			return mcp.NewToolResultError(ruleError("delete", id, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Rule %s deleted", id)), nil
	}
}

func handleRuleSuggestions(sc *server.ServerContext) common.ToolHandler {
	return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		suggestions := sc.Agent().RuleSuggestions()
		if suggestions == nil {
			suggestions = []rules.Suggestion{}
		}
		return jsonResult(suggestions)
	}
}

func ruleError(op, id string, err error) string {
	if errors.Is(err, rules.ErrRuleNotFound) {
		return fmt.Sprintf("Rule %s not found", id)
	}
	return fmt.Sprintf("Failed to %s rule %s: %v", op, id, err)
}
