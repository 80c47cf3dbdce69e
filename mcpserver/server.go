// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes a tristore triple index as MCP tools, so a rule engine or any MCP
// client can add, delete and pattern-match subject/predicate/object facts.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthewjhunter/tristore"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxListed caps how many facts a single tool result prints.
const maxListed = 200

// TripleServer bridges MCP tool calls to a tristore.TripleIndex.
type TripleServer struct {
	index  *tristore.TripleIndex
	loader *tristore.Loader
	load   tristore.LoadConfig
}

// NewTripleServer creates a server backed by the loader's index. load is the
// configuration triple_reload re-reads.
func NewTripleServer(loader *tristore.Loader, load tristore.LoadConfig) *TripleServer {
	return &TripleServer{index: loader.Index(), loader: loader, load: load}
}

// --- Input types (MCP SDK infers JSON schemas from struct tags) ---

// AddInput is the input schema for the triple_add tool.
type AddInput struct {
	Subject   string `json:"subject" jsonschema:"the entity the fact is about (case-insensitive)"`
	Predicate string `json:"predicate" jsonschema:"the relation or attribute name (case-insensitive)"`
	Object    string `json:"object" jsonschema:"the value of the relation (case-sensitive)"`
}

// DeleteInput is the input schema for the triple_delete tool.
type DeleteInput struct {
	Subject   string `json:"subject" jsonschema:"subject whose facts to delete"`
	Predicate string `json:"predicate,omitempty" jsonschema:"restrict deletion to this predicate; omit to delete every fact for the subject"`
	Object    string `json:"object,omitempty" jsonschema:"delete only this exact object (requires predicate)"`
}

// PatternInput is the input schema for triple_match and triple_not_match.
// Omitted fields match any value.
type PatternInput struct {
	Subject   string `json:"subject,omitempty" jsonschema:"subject to match; omit for any"`
	Predicate string `json:"predicate,omitempty" jsonschema:"predicate to match; omit for any"`
	Object    string `json:"object,omitempty" jsonschema:"exact object to match; omit for any"`
}

// HasInput is the input schema for the triple_has tool.
type HasInput struct {
	Subject   string `json:"subject" jsonschema:"subject to check"`
	Predicate string `json:"predicate,omitempty" jsonschema:"predicate to check under the subject"`
	Object    string `json:"object,omitempty" jsonschema:"exact object to check under the subject and predicate"`
}

// StatusInput is the input schema for the triple_status tool.
type StatusInput struct{}

// ReloadInput is the input schema for the triple_reload tool.
type ReloadInput struct{}

// --- Tool registration ---

// Register adds all triple tools to the given MCP server.
func (ts *TripleServer) Register(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "triple_add",
		Description: "Add a subject:predicate:object fact. Subject and predicate are case-insensitive; the object is stored exactly. Adding an existing fact is a no-op.",
	}, ts.HandleAdd)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "triple_delete",
		Description: "Delete facts. With subject, predicate and object, deletes that fact; with subject and predicate, every fact under the predicate; with subject only, every fact about the subject.",
	}, ts.HandleDelete)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "triple_match",
		Description: "List facts matching a pattern. Omitted fields match anything.",
	}, ts.HandleMatch)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "triple_not_match",
		Description: "List facts whose subject does not appear in any fact matching the pattern.",
	}, ts.HandleNotMatch)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "triple_has",
		Description: "Check whether a subject, subject+predicate, or exact fact exists.",
	}, ts.HandleHas)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "triple_status",
		Description: "Show index statistics: fact count and facts per subject.",
	}, ts.HandleStatus)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "triple_reload",
		Description: "Re-read the configured triple files (on top of the startup snapshot, if any), replacing the current facts. Facts added since startup that are in neither are dropped.",
	}, ts.HandleReload)
}

// --- Handlers ---

func (ts *TripleServer) HandleAdd(_ context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return textResult("Error: subject is required", true), nil, nil
	}
	if strings.TrimSpace(input.Predicate) == "" {
		return textResult("Error: predicate is required", true), nil, nil
	}

	added, err := ts.index.Add(input.Subject, input.Predicate, input.Object)
	if err != nil {
		return textResult(fmt.Sprintf("Error adding fact: %v", err), true), nil, nil
	}
	f := tristore.Fact{Subject: strings.ToUpper(input.Subject), Predicate: strings.ToUpper(input.Predicate), Object: input.Object}
	if !added {
		return textResult(fmt.Sprintf("Already stored (duplicate): %s", f), false), nil, nil
	}
	return textResult(fmt.Sprintf("Added %s.", f), false), nil, nil
}

func (ts *TripleServer) HandleDelete(_ context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return textResult("Error: subject is required", true), nil, nil
	}
	if input.Object != "" && input.Predicate == "" {
		return textResult("Error: object requires predicate", true), nil, nil
	}

	n := ts.index.Delete(input.Subject, input.Predicate, input.Object)
	if n == 0 {
		return textResult("Nothing deleted.", false), nil, nil
	}
	return textResult(fmt.Sprintf("Deleted %d facts.", n), false), nil, nil
}

func (ts *TripleServer) HandleMatch(_ context.Context, _ *mcp.CallToolRequest, input PatternInput) (*mcp.CallToolResult, any, error) {
	facts := ts.index.Match(input.Subject, input.Predicate, input.Object)
	return textResult(formatFacts(facts, "No matching facts."), false), nil, nil
}

func (ts *TripleServer) HandleNotMatch(_ context.Context, _ *mcp.CallToolRequest, input PatternInput) (*mcp.CallToolResult, any, error) {
	facts := ts.index.NotMatch(input.Subject, input.Predicate, input.Object)
	return textResult(formatFacts(facts, "No facts outside the pattern."), false), nil, nil
}

func (ts *TripleServer) HandleHas(_ context.Context, _ *mcp.CallToolRequest, input HasInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return textResult("Error: subject is required", true), nil, nil
	}

	var found bool
	switch {
	case input.Predicate == "" && input.Object != "":
		return textResult("Error: object requires predicate", true), nil, nil
	case input.Predicate == "":
		found = ts.index.HasSubject(input.Subject)
	case input.Object == "":
		found = ts.index.HasPredicate(input.Subject, input.Predicate)
	default:
		found = ts.index.HasObject(input.Subject, input.Predicate, input.Object)
	}

	if found {
		return textResult("yes", false), nil, nil
	}
	return textResult("no", false), nil, nil
}

func (ts *TripleServer) HandleStatus(_ context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, any, error) {
	subjects := ts.index.Subjects()

	var b strings.Builder
	fmt.Fprintf(&b, "Facts: %d\nSubjects: %d\n", ts.index.Len(), len(subjects))

	if len(subjects) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "By subject:")
		for _, s := range subjects {
			fmt.Fprintf(&b, "  %s: %d\n", s, len(ts.index.Match(s, "", "")))
		}
	}

	return textResult(b.String(), false), nil, nil
}

func (ts *TripleServer) HandleReload(ctx context.Context, _ *mcp.CallToolRequest, _ ReloadInput) (*mcp.CallToolResult, any, error) {
	if ts.load.Files == nil {
		return textResult("Error: no triple files configured", true), nil, nil
	}
	n, err := ts.loader.Reload(ctx, ts.load)
	if err != nil {
		return textResult(fmt.Sprintf("Error reloading: %v", err), true), nil, nil
	}
	return textResult(fmt.Sprintf("Reloaded %d files (%d facts).", n, ts.index.Len()), false), nil, nil
}

// formatFacts renders one fact per line, capped at maxListed.
func formatFacts(facts []tristore.Fact, empty string) string {
	if len(facts) == 0 {
		return empty
	}
	var b strings.Builder
	for i, f := range facts {
		if i == maxListed {
			fmt.Fprintf(&b, "... %d more\n", len(facts)-maxListed)
			break
		}
		fmt.Fprintln(&b, f.String())
	}
	fmt.Fprintf(&b, "%d facts.", len(facts))
	return b.String()
}

// textResult builds a CallToolResult with a single text content block.
func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: isError,
	}
}
