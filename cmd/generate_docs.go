package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/agent"
	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Render markdown documentation for every MCP tool todoagent registers,
write tools included. The output is built from the live tool definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := toolsMarkdown()
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputFile, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// offlineMail and offlineTracker satisfy the agent without Google
// credentials. Doc generation never calls them.
type offlineMail struct{}

func (offlineMail) FetchEmails(context.Context, string, int) ([]*email.Email, error) {
	return nil, nil
}
func (offlineMail) FetchEmailByID(context.Context, string) (*email.Email, error) {
	return nil, email.ErrNotFound
}
func (offlineMail) AddLabel(context.Context, string, string) error    { return nil }
func (offlineMail) RemoveLabel(context.Context, string, string) error { return nil }

type offlineTracker struct{}

func (offlineTracker) CreateTask(context.Context, tasks.NewTask) (*tasks.Task, error) {
	return nil, fmt.Errorf("offline")
}

const categoryOther = "Other"

// categoryOrder fixes the section order of the reference.
var categoryOrder = []string{"Processing Tools", "Rule Tools", "Statistics Tools", "Task Tools", categoryOther}

type argDoc struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

type toolDoc struct {
	Name        string
	Description string
	Args        []argDoc
}

type categoryDoc struct {
	Title  string
	Anchor string
	Tools  []toolDoc
}

var funcs = template.FuncMap{
	"requirement": func(required bool) string {
		if required {
			return "required"
		}
		return "optional"
	},
}

var toolTemplate = template.Must(template.New("tool").Funcs(funcs).Parse(
	`### {{.Name}}

{{with .Description}}{{.}}

{{end}}{{with .Args}}**Arguments:**
{{range .}}- ` + "`{{.Name}}`" + ` ({{.Type}}, {{requirement .Required}}): {{.Description}}
{{end}}
{{end}}`))

var referenceTemplate = template.Must(template.Must(toolTemplate.Clone()).New("reference").Parse(
	`# MCP Tools Reference

Tools available when todoagent runs as an MCP server. Write tools are only
registered with ` + "`--yolo`" + `.

## Table of Contents

{{range .}}- [{{.Title}}](#{{.Anchor}})
{{end}}
{{range .}}## {{.Title}}

{{range .Tools}}{{template "tool" .}}
{{end}}{{end}}`))

// toolsMarkdown registers every tool against an offline agent and renders
// the reference.
func toolsMarkdown() (string, error) {
	a, err := agent.New(agent.Deps{Mail: offlineMail{}, Tracker: offlineTracker{}}, agent.Config{})
	if err != nil {
		return "", err
	}
	sc := server.NewServerContext(context.Background(), a, "default")
	defer func() { _ = sc.Shutdown() }()

	mcpSrv, err := newMCPServer(sc, false)
	if err != nil {
		return "", err
	}

	var tools []mcp.Tool
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	return renderReference(tools)
}

func renderReference(tools []mcp.Tool) (string, error) {
	byCategory := map[string][]toolDoc{}
	for _, t := range tools {
		c := categoryFor(t.Name)
		byCategory[c] = append(byCategory[c], describeTool(t))
	}

	var sections []categoryDoc
	for _, title := range categoryOrder {
		docs := byCategory[title]
		if len(docs) == 0 {
			continue
		}
		slices.SortFunc(docs, func(a, b toolDoc) int { return strings.Compare(a.Name, b.Name) })
		sections = append(sections, categoryDoc{
			Title:  title,
			Anchor: strings.ToLower(strings.ReplaceAll(title, " ", "-")),
			Tools:  docs,
		})
	}

	var sb strings.Builder
	if err := referenceTemplate.Execute(&sb, sections); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// categoryFor groups todoagent_<verb>_<noun> tools by what they act on.
func categoryFor(name string) string {
	rest, ok := strings.CutPrefix(name, "todoagent_")
	if !ok {
		return categoryOther
	}
	switch {
	case strings.HasPrefix(rest, "process_"), strings.HasPrefix(rest, "preview_"), rest == "run_batch", rest == "scheduler_status":
		return "Processing Tools"
	case strings.HasSuffix(rest, "_rule"), strings.HasSuffix(rest, "_rules"), rest == "rule_suggestions":
		return "Rule Tools"
	case rest == "list_task_lists":
		return "Task Tools"
	case strings.HasSuffix(rest, "_stats"), strings.HasPrefix(rest, "ai_"), strings.HasSuffix(rest, "_ai_history"):
		return "Statistics Tools"
	default:
		return categoryOther
	}
}

// describeTool flattens the input schema into arguments sorted by name.
func describeTool(tool mcp.Tool) toolDoc {
	doc := toolDoc{Name: tool.Name, Description: tool.Description}
	for name, raw := range tool.InputSchema.Properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		arg := argDoc{
			Name:        name,
			Type:        "any",
			Required:    slices.Contains(tool.InputSchema.Required, name),
			Description: "no description",
		}
		if t, ok := prop["type"].(string); ok {
			arg.Type = t
		}
		if d, ok := prop["description"].(string); ok && d != "" {
			arg.Description = d
		}
		doc.Args = append(doc.Args, arg)
	}
	slices.SortFunc(doc.Args, func(a, b argDoc) int { return strings.Compare(a.Name, b.Name) })
	return doc
}
