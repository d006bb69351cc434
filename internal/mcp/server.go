// Package mcp exposes the workspace operations as Model Context Protocol
// tools so an assistant can inspect and switch forecasting contexts.
package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forecastkit/wsctl/internal/usecase"
	"github.com/forecastkit/wsctl/internal/workspace"
)

// Server wraps the MCP server with workspace-specific tools.
type Server struct {
	server *mcp.Server
	ops    *usecase.Operations
}

// NewServer creates an MCP server backed by ops.
func NewServer(ops *usecase.Operations, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "wsctl",
		Version: version,
	}, nil)

	s := &Server{
		server: mcpServer,
		ops:    ops,
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "workspace_status",
		Description: "Show the active profile and query and the setup status of the active profile",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "profile_list",
		Description: "List all profiles",
	}, s.handleProfileList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "profile_create",
		Description: "Create a profile with its own default query; the active profile stays selected",
	}, s.handleProfileCreate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "profile_switch",
		Description: "Make a profile active together with its last used query",
	}, s.handleProfileSwitch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "profile_delete",
		Description: "Delete an inactive profile and all of its queries",
	}, s.handleProfileDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "profile_duplicate",
		Description: "Copy a profile's configuration, optionally with its queries and caches",
	}, s.handleProfileDuplicate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_list",
		Description: "List the queries of a profile",
	}, s.handleQueryList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_create",
		Description: "Create a query in a profile whose connection has been tested",
	}, s.handleQueryCreate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_switch",
		Description: "Make a query active; caches are kept warm",
	}, s.handleQuerySwitch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_delete",
		Description: "Delete an inactive query that is not the last one of its profile",
	}, s.handleQueryDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_duplicate",
		Description: "Copy a query, optionally with its cache bundle",
	}, s.handleQueryDuplicate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_path",
		Description: "Resolve a logical cache file name to its path for the active query",
	}, s.handleResolve)
}

// Input/Output types for each tool

type ResultOutput struct {
	Message   string   `json:"message"`
	ProfileID string   `json:"profileId,omitempty"`
	QueryID   string   `json:"queryId,omitempty"`
	Failures  []string `json:"failures,omitempty"`
}

type StatusInput struct{}

type StageOutput struct {
	Stage    string `json:"stage"`
	Enabled  bool   `json:"enabled"`
	Complete bool   `json:"complete"`
}

type StatusOutput struct {
	ProfileID       string        `json:"profileId"`
	QueryID         string        `json:"queryId"`
	NextStage       string        `json:"nextStage,omitempty"`
	MissingMappings []string      `json:"missingMappings,omitempty"`
	Stages          []StageOutput `json:"stages"`
}

type ProfileListInput struct{}

type ProfileEntry struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Active     bool    `json:"active"`
	QueryCount int     `json:"queryCount"`
	PertFactor float64 `json:"pertFactor"`
	BaseURL    string  `json:"baseUrl,omitempty"`
	LastUsed   string  `json:"lastUsed"`
}

type ProfileListOutput struct {
	Profiles []ProfileEntry `json:"profiles"`
}

type ProfileCreateInput struct {
	Name            string `json:"name" jsonschema:"Display name of the new profile"`
	Description     string `json:"description,omitempty" jsonschema:"Optional description"`
	CloneFromActive bool   `json:"cloneFromActive,omitempty" jsonschema:"Copy settings, connection and field mappings from the active profile"`
}

type ProfileIDInput struct {
	ProfileID string `json:"profileId" jsonschema:"Profile id as shown by profile_list"`
}

type ProfileDuplicateInput struct {
	SourceID     string `json:"sourceId" jsonschema:"Profile id to copy"`
	NewName      string `json:"newName" jsonschema:"Display name of the copy"`
	CloneQueries bool   `json:"cloneQueries,omitempty" jsonschema:"Also copy every query and its cache bundle"`
}

type QueryListInput struct {
	ProfileID string `json:"profileId,omitempty" jsonschema:"Profile id; defaults to the active profile"`
}

type QueryEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	QueryString string `json:"queryString,omitempty"`
	LastUsed    string `json:"lastUsed"`
}

type QueryListOutput struct {
	ProfileID string       `json:"profileId"`
	Queries   []QueryEntry `json:"queries"`
}

type QueryCreateInput struct {
	ProfileID   string `json:"profileId" jsonschema:"Profile id"`
	Name        string `json:"name" jsonschema:"Display name of the query"`
	QueryString string `json:"queryString,omitempty" jsonschema:"Data source query, for example a JQL expression"`
	Description string `json:"description,omitempty" jsonschema:"Optional description"`
}

type QueryIDInput struct {
	ProfileID string `json:"profileId" jsonschema:"Profile id"`
	QueryID   string `json:"queryId" jsonschema:"Query id as shown by query_list"`
}

type QueryDuplicateInput struct {
	ProfileID     string `json:"profileId" jsonschema:"Profile id"`
	SourceQueryID string `json:"sourceQueryId" jsonschema:"Query id to copy"`
	NewName       string `json:"newName" jsonschema:"Display name of the copy"`
	CopyCache     bool   `json:"copyCache,omitempty" jsonschema:"Also copy the cache bundle"`
}

type ResolveInput struct {
	Logical string `json:"logical" jsonschema:"Logical file name such as jira_cache.json or cache/velocity.json"`
}

type ResolveOutput struct {
	Path       string `json:"path"`
	LegacyMode bool   `json:"legacyMode"`
}

// Tool handlers

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	status, res := s.ops.GetConfigurationStatus(ctx, "")
	if !res.OK {
		return nil, StatusOutput{}, res.Err()
	}
	reg, err := s.ops.Workspace().Registry.Load()
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{
		ProfileID:       reg.ActiveProfileID,
		QueryID:         reg.ActiveQueryID,
		NextStage:       string(status.Next()),
		MissingMappings: status.MissingMappings,
		Stages:          make([]StageOutput, 0, len(status.Stages)),
	}
	for _, st := range status.Stages {
		out.Stages = append(out.Stages, StageOutput{Stage: string(st.Stage), Enabled: st.Enabled, Complete: st.Complete})
	}
	return nil, out, nil
}

func (s *Server) handleProfileList(ctx context.Context, req *mcp.CallToolRequest, input ProfileListInput) (*mcp.CallToolResult, ProfileListOutput, error) {
	profiles, active, err := s.ops.Workspace().ProfileManager.List()
	if err != nil {
		return nil, ProfileListOutput{}, err
	}

	out := ProfileListOutput{Profiles: make([]ProfileEntry, 0, len(profiles))}
	for _, p := range profiles {
		out.Profiles = append(out.Profiles, ProfileEntry{
			ID:         p.ID,
			Name:       p.Name,
			Active:     p.ID == active.ProfileID,
			QueryCount: p.QueryCount,
			PertFactor: p.PertFactor,
			BaseURL:    p.BaseURL,
			LastUsed:   p.LastUsed.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (s *Server) handleProfileCreate(ctx context.Context, req *mcp.CallToolRequest, input ProfileCreateInput) (*mcp.CallToolResult, ResultOutput, error) {
	return resultOutput(s.ops.CreateProfile(ctx, usecase.CreateProfileInput{
		Name:            input.Name,
		Description:     input.Description,
		CloneFromActive: input.CloneFromActive,
	}))
}

func (s *Server) handleProfileSwitch(ctx context.Context, req *mcp.CallToolRequest, input ProfileIDInput) (*mcp.CallToolResult, ResultOutput, error) {
	return resultOutput(s.ops.SwitchProfile(ctx, input.ProfileID))
}

func (s *Server) handleProfileDelete(ctx context.Context, req *mcp.CallToolRequest, input ProfileIDInput) (*mcp.CallToolResult, ResultOutput, error) {
	return resultOutput(s.ops.DeleteProfile(ctx, input.ProfileID))
}

func (s *Server) handleProfileDuplicate(ctx context.Context, req *mcp.CallToolRequest, input ProfileDuplicateInput) (*mcp.CallToolResult, ResultOutput, error) {
	return resultOutput(s.ops.DuplicateProfile(ctx, usecase.DuplicateProfileInput{
		SourceID:     input.SourceID,
		NewName:      input.NewName,
		CloneQueries: input.CloneQueries,
	}))
}

func (s *Server) handleQueryList(ctx context.Context, req *mcp.CallToolRequest, input QueryListInput) (*mcp.CallToolResult, QueryListOutput, error) {
	ws := s.ops.Workspace()
	reg, err := ws.Registry.Load()
	if err != nil {
		return nil, QueryListOutput{}, err
	}
	profileID := input.ProfileID
	if profileID == "" {
		profileID = reg.ActiveProfileID
	}

	queries, err := ws.QueryManager.List(profileID)
	if err != nil {
		return nil, QueryListOutput{}, err
	}
	out := QueryListOutput{ProfileID: profileID, Queries: make([]QueryEntry, 0, len(queries))}
	for _, q := range queries {
		out.Queries = append(out.Queries, QueryEntry{
			ID:          q.ID,
			Name:        q.Name,
			Active:      reg.Active() == workspace.Selection{ProfileID: profileID, QueryID: q.ID},
			QueryString: q.QueryString,
			LastUsed:    q.LastUsed.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (s *Server) handleQueryCreate(ctx context.Context, req *mcp.CallToolRequest, input QueryCreateInput) (*mcp.CallToolResult, ResultOutput, error) {
	return resultOutput(s.ops.CreateQuery(ctx, usecase.CreateQueryInput{
		ProfileID:   input.ProfileID,
		Name:        input.Name,
		QueryString: input.QueryString,
		Description: input.Description,
	}))
}

func (s *Server) handleQuerySwitch(ctx context.Context, req *mcp.CallToolRequest, input QueryIDInput) (*mcp.CallToolResult, ResultOutput, error) {
	return resultOutput(s.ops.SwitchQuery(ctx, input.ProfileID, input.QueryID))
}

func (s *Server) handleQueryDelete(ctx context.Context, req *mcp.CallToolRequest, input QueryIDInput) (*mcp.CallToolResult, ResultOutput, error) {
	return resultOutput(s.ops.DeleteQuery(ctx, input.ProfileID, input.QueryID))
}

func (s *Server) handleQueryDuplicate(ctx context.Context, req *mcp.CallToolRequest, input QueryDuplicateInput) (*mcp.CallToolResult, ResultOutput, error) {
	return resultOutput(s.ops.DuplicateQuery(ctx, usecase.DuplicateQueryInput{
		ProfileID:     input.ProfileID,
		SourceQueryID: input.SourceQueryID,
		NewName:       input.NewName,
		CopyCache:     input.CopyCache,
	}))
}

func (s *Server) handleResolve(ctx context.Context, req *mcp.CallToolRequest, input ResolveInput) (*mcp.CallToolResult, ResolveOutput, error) {
	r, err := s.ops.Workspace().Resolver()
	if err != nil {
		return nil, ResolveOutput{}, err
	}
	return nil, ResolveOutput{Path: r.Resolve(input.Logical), LegacyMode: r.LegacyMode()}, nil
}

// resultOutput turns a failed Result into a tool error so the client sees
// IsError with the message.
func resultOutput(res usecase.Result) (*mcp.CallToolResult, ResultOutput, error) {
	if !res.OK {
		return nil, ResultOutput{}, res.Err()
	}
	return nil, ResultOutput{
		Message:   res.Message,
		ProfileID: res.ProfileID,
		QueryID:   res.QueryID,
		Failures:  res.Failures,
	}, nil
}
