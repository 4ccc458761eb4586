// Package mcp exposes plan editing and simulation to MCP clients.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/chronoplan/pkg/application"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/edit"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
)

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

const planResourceURI = "chronoplan://plan"

// Server serves one workspace. Tool calls that touch the plan or the journal
// are serialized; the backend has a single writer and no reader locking.
type Server struct {
	mcpServer *mcp.Server
	services  *wiring.AppServices
	mu        sync.Mutex
}

func NewServer(services *wiring.AppServices) *Server {
	info := mcp.ServerInfo{
		Name:    "chronoplan",
		Version: Version,
	}
	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Chronoplan MCP Server"),
			mcp.WithDescription("Chronoplan edits time-anchored activity plans transactionally and simulates them."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Read the plan, create or delete directives, then simulate to see when each directive runs."),
		),
		services: services,
	}
	s.registerTools()
	s.registerPlanResource()
	return s
}

// toolError returns the message shown to MCP clients.
func toolError(action string, err error) error {
	return fmt.Errorf("%s failed: %v", action, err)
}

type CreateArgs struct {
	Type      string         `json:"type" jsonschema:"description=Activity type of the new directive"`
	Name      string         `json:"name,omitempty" jsonschema:"description=Optional directive name"`
	At        string         `json:"at,omitempty" jsonschema:"description=Absolute start in RFC 3339; mutually exclusive with anchor"`
	Anchor    int64          `json:"anchor,omitempty" jsonschema:"description=ID of the directive to anchor to"`
	Offset    string         `json:"offset,omitempty" jsonschema:"description=Go duration offset from the anchor point such as 15m"`
	Point     string         `json:"point,omitempty" jsonschema:"description=Anchor point: start or end"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"description=Activity arguments validated against the type schema"`
}

type DeleteArgs struct {
	ID       int64  `json:"id" jsonschema:"description=ID of the directive to delete"`
	Strategy string `json:"strategy,omitempty" jsonschema:"description=error, cascade, anchor_to_parent or anchor_to_plan; defaults to the configured strategy"`
}

type SimulateArgs struct {
	Until string `json:"until,omitempty" jsonschema:"description=Stop at this RFC 3339 instant"`
	After string `json:"after,omitempty" jsonschema:"description=Stop this Go duration after the horizon start"`
}

// EditResult summarises the net change of a tool call.
type EditResult struct {
	Created []directive.Directive `json:"created"`
	Deleted []directive.Directive `json:"deleted"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("chronoplan_get_plan").
		Description("Retrieve the plan horizon and its directives").
		Handler(s.handleGetPlan)

	s.mcpServer.Tool("chronoplan_list_types").
		Description("List the registered activity types").
		Handler(s.handleListTypes)

	s.mcpServer.Tool("chronoplan_create_directive").
		Description("Add a directive at an absolute time or anchored to another directive").
		Handler(s.handleCreate)

	s.mcpServer.Tool("chronoplan_delete_directive").
		Description("Delete a directive, handling its anchored children with a strategy").
		Handler(s.handleDelete)

	s.mcpServer.Tool("chronoplan_simulate").
		Description("Simulate the plan and return the span of each directive").
		Handler(s.handleSimulate)

	s.mcpServer.Tool("chronoplan_journal").
		Description("List saved scheduling runs from the commit journal").
		Handler(s.handleJournal)
}

func (s *Server) registerPlanResource() {
	s.mcpServer.Resource(planResourceURI).
		Name(planResourceURI).
		Description("The current plan document").
		MimeType("application/json").
		Handler(func(ctx context.Context, _ string, _ map[string]string) (*mcp.ResourceContent, error) {
			doc, err := s.handleGetPlan(ctx, struct{}{})
			if err != nil {
				return nil, err
			}
			data, err := json.Marshal(doc)
			if err != nil {
				return nil, err
			}
			return &mcp.ResourceContent{
				URI:      planResourceURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}

func (s *Server) handleGetPlan(ctx context.Context, args struct{}) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.services.Plans.LoadPlan()
	if err != nil {
		return nil, toolError("load plan", err)
	}
	return doc, nil
}

type typeInfo struct {
	Name     string         `json:"name"`
	Duration string         `json:"duration"`
	Schema   map[string]any `json:"schema,omitempty"`
}

func (s *Server) handleListTypes(ctx context.Context, args struct{}) (any, error) {
	types := s.services.Types.Types()
	out := make([]typeInfo, 0, len(types))
	for _, t := range types {
		info := typeInfo{Name: t.Name, Duration: string(t.Duration.Kind), Schema: t.Schema}
		if t.Duration.Fixed > 0 {
			info.Duration = t.Duration.Fixed.String()
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *Server) handleCreate(ctx context.Context, args CreateArgs) (any, error) {
	nd, err := args.toNewDirective()
	if err != nil {
		return nil, toolError("create directive", err)
	}
	return s.run(ctx, "create directive", application.CreateGoal(nil, nd))
}

func (s *Server) handleDelete(ctx context.Context, args DeleteArgs) (any, error) {
	strategy, err := s.services.Workspace.Config.Strategy()
	if args.Strategy != "" {
		strategy, err = planning.ParseDeletedAnchorStrategy(args.Strategy)
	}
	if err != nil {
		return nil, toolError("delete directive", err)
	}
	return s.run(ctx, "delete directive", application.DeleteGoal(directive.ID(args.ID), strategy))
}

func (s *Server) handleSimulate(ctx context.Context, args SimulateArgs) (any, error) {
	opts := simulation.DefaultOptions()
	switch {
	case args.Until != "" && args.After != "":
		return nil, toolError("simulate", errors.New("until and after are mutually exclusive"))
	case args.Until != "":
		until, err := time.Parse(time.RFC3339, args.Until)
		if err != nil {
			return nil, toolError("simulate", err)
		}
		opts.Pause = simulation.PauseAt(until)
	case args.After != "":
		after, err := time.ParseDuration(args.After)
		if err != nil {
			return nil, toolError("simulate", err)
		}
		opts.Pause = simulation.PauseAfter(after)
	}

	var results *simulation.Results
	if _, err := s.run(ctx, "simulate", application.SimulateGoal(opts, &results)); err != nil {
		return nil, err
	}
	spans, ok := simulation.Spans(results)
	if !ok {
		return nil, toolError("simulate", errors.New("simulator returned no span layout"))
	}
	return spans, nil
}

func (s *Server) handleJournal(ctx context.Context, args struct{}) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.services.Journal.LoadAll()
	if err != nil {
		return nil, toolError("load journal", err)
	}
	return entries, nil
}

// run executes one goal in a scheduling session and reports its net change.
func (s *Server) run(ctx context.Context, action string, goal application.Goal) (*EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.services.Scheduling.Run(ctx, goal)
	if err != nil {
		return nil, toolError(action, err)
	}
	if len(report.Failures) > 0 {
		return nil, toolError(action, report.Failures[0].Err)
	}

	result := &EditResult{Created: []directive.Directive{}, Deleted: []directive.Directive{}}
	for _, e := range report.Diff {
		if e.Kind == edit.KindCreate {
			result.Created = append(result.Created, e.Directive)
		} else {
			result.Deleted = append(result.Deleted, e.Directive)
		}
	}
	return result, nil
}

func (a CreateArgs) toNewDirective() (directive.NewDirective, error) {
	nd := directive.NewDirective{Type: a.Type, Name: a.Name, Arguments: a.Arguments}
	if a.Type == "" {
		return nd, errors.New("type is required")
	}
	switch {
	case a.At != "" && a.Anchor != 0:
		return nd, errors.New("at and anchor are mutually exclusive")
	case a.At != "":
		at, err := time.Parse(time.RFC3339, a.At)
		if err != nil {
			return nd, fmt.Errorf("invalid at: %w", err)
		}
		nd.Start = directive.Absolute(at)
	case a.Anchor != 0:
		var offset time.Duration
		if a.Offset != "" {
			d, err := time.ParseDuration(a.Offset)
			if err != nil {
				return nd, fmt.Errorf("invalid offset: %w", err)
			}
			offset = d
		}
		nd.Start = directive.Anchor(directive.ID(a.Anchor), offset, directive.AnchorPoint(a.Point), time.Time{})
	default:
		return nd, errors.New("one of at or anchor is required")
	}
	return nd, nil
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	return mcp.ServeWebSocket(ctx, s.mcpServer, addr)
}

func (s *Server) ServeGRPC(ctx context.Context, addr string) error {
	return mcp.ServeGRPC(ctx, s.mcpServer, addr)
}
