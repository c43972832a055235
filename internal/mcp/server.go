package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/internal/logger"
	"github.com/brendan.keane/svcbase/pkg/openapi"
	"github.com/brendan.keane/svcbase/pkg/service"
)

const (
	serverName     = "svcbase"
	serverVersion  = "1.0.0"
	defaultContext = 5
	callTimeout    = 30 * time.Second
)

// Server exposes one service client as MCP tools
type Server struct {
	logger  zerolog.Logger
	client  *service.Client
	catalog *openapi.Catalog
	headers service.HeaderSet
	mcp     *server.MCPServer
}

// Option configures a Server
type Option func(*Server)

// WithCatalog enables list_actions over catalog
func WithCatalog(catalog *openapi.Catalog) Option {
	return func(s *Server) { s.catalog = catalog }
}

// WithHeaders attaches headers to every call; tool arguments override them
func WithHeaders(headers service.HeaderSet) Option {
	return func(s *Server) { s.headers = headers }
}

// NewServer creates an MCP server over client
func NewServer(log zerolog.Logger, client *service.Client, opts ...Option) *Server {
	s := &Server{
		logger: logger.ForComponent(log, "mcp_server"),
		client: client,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP over stdin/stdout until stdin closes
func (s *Server) ServeStdio() error {
	opt := s.client.Option()
	s.logger.Debug().
		Str("base_address", opt.BaseAddress).
		Str("controller", opt.Controller).
		Msg("MCP server started, reading from stdin")

	if err := server.ServeStdio(s.mcp); err != nil {
		return errors.Wrap(err, errors.ErrorTypeMCP, "MCP stdio server failed")
	}
	return nil
}

func (s *Server) registerTools() {
	opt := s.client.Option()
	target := strings.TrimSuffix(opt.BaseAddress, "/")
	if opt.Controller != "" {
		target += "/" + opt.Controller
	}

	filterArgs := []mcp.ToolOption{
		mcp.WithString("jmespath",
			mcp.Description("JMESPath expression to filter the JSON response (https://jmespath.org). Cannot be used with regex.")),
		mcp.WithString("regex",
			mcp.Description("Regex pattern to search the response text; matches are returned with surrounding context. Cannot be used with jmespath.")),
		mcp.WithNumber("context_lines",
			mcp.Description("Context around regex matches, ~80 characters per line (default 5)."),
			mcp.DefaultNumber(defaultContext)),
	}
	callArgs := []mcp.ToolOption{
		mcp.WithString("action", mcp.Required(),
			mcp.Description("Action name relative to the controller, e.g. 'create' or 'find'")),
		mcp.WithObject("params", mcp.Description("Query parameters as key-value pairs")),
		mcp.WithObject("headers", mcp.Description("HTTP headers as key-value pairs")),
	}

	s.mcp.AddTool(mcp.NewTool("list_actions",
		mcp.WithDescription(fmt.Sprintf("List the actions exposed by %s with their method, summary, query parameters and accepted body media types.", target)),
		mcp.WithString("prefix", mcp.Description("Only actions whose name starts with this prefix")),
		mcp.WithString("method", mcp.Description("Only actions with this HTTP method (GET or POST)")),
	), s.handleListActions)

	postOpts := append([]mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("POST to an action of %s. Non-200 answers are reported as errors with the status name.", target)),
		mcp.WithString("body", mcp.Description("Request body. JSON objects and arrays are sent as JSON, anything else as a form string.")),
		mcp.WithString("content_type", mcp.Description("Content type hint: json, form or unknown")),
	}, callArgs...)
	s.mcp.AddTool(mcp.NewTool("post_action", append(postOpts, filterArgs...)...), s.handlePostAction)

	getOpts := append([]mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("GET an action of %s. The response is returned whatever its status.", target)),
	}, callArgs...)
	s.mcp.AddTool(mcp.NewTool("get_action", append(getOpts, filterArgs...)...), s.handleGetAction)
}

func (s *Server) handleListActions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.catalog == nil || !s.catalog.Loaded() {
		return mcp.NewToolResultError("no OpenAPI document configured; set --openapi or SVCBASE_OPENAPI"), nil
	}

	controller := s.client.Option().Controller
	prefix := request.GetString("prefix", "")
	method := request.GetString("method", "")

	actions, err := s.catalog.Actions(controller)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type actionView struct {
		Name         string          `json:"name"`
		Method       string          `json:"method"`
		Summary      string          `json:"summary,omitempty"`
		ContentTypes []string        `json:"content_types,omitempty"`
		BodyRequired bool            `json:"body_required,omitempty"`
		Params       []openapi.Param `json:"params,omitempty"`
	}
	views := []actionView{}
	for _, a := range actions {
		if !strings.HasPrefix(a.Name, prefix) || (method != "" && !strings.EqualFold(a.Method, method)) {
			continue
		}
		views = append(views, actionView{
			Name:         a.Name,
			Method:       a.Method,
			Summary:      a.Summary,
			ContentTypes: a.ContentTypes,
			BodyRequired: a.BodyRequired,
			Params:       a.QueryParams,
		})
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("actions", len(views)).Str("prefix", prefix).Msg("listed actions")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handlePostAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, opts, filter, errResult := s.callArguments(request)
	if errResult != nil {
		return errResult, nil
	}

	if body := request.GetString("body", ""); body != "" {
		trimmed := strings.TrimSpace(body)
		if gjson.Valid(trimmed) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
			opts = append(opts, service.WithBody(json.RawMessage(trimmed)))
		} else {
			opts = append(opts, service.WithBody(body))
		}
	}
	if ct := request.GetString("content_type", ""); ct != "" {
		hint, err := service.ParseContentType(ct)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts = append(opts, service.WithContentType(hint))
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	result, err := service.Post[json.RawMessage](ctx, s.client, action, opts...)
	return s.toolResult(action, result, err, filter)
}

func (s *Server) handleGetAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, opts, filter, errResult := s.callArguments(request)
	if errResult != nil {
		return errResult, nil
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	result, err := service.Get[json.RawMessage](ctx, s.client, action, opts...)
	return s.toolResult(action, result, err, filter)
}

// callArguments reads the arguments shared by post_action and get_action
func (s *Server) callArguments(request mcp.CallToolRequest) (string, []service.CallOption, Filter, *mcp.CallToolResult) {
	action, err := request.RequireString("action")
	if err != nil || strings.TrimSpace(action) == "" {
		return "", nil, Filter{}, mcp.NewToolResultError("missing required argument: action")
	}
	args := request.GetArguments()

	headers := make(service.HeaderSet, len(s.headers))
	for name, value := range s.headers {
		headers[name] = value
	}
	if extra, ok := args["headers"].(map[string]any); ok {
		for name, value := range extra {
			headers[name] = fmt.Sprint(value)
		}
	}

	var params []service.QueryParam
	if query, ok := args["params"].(map[string]any); ok {
		for name, value := range query {
			params = append(params, service.Param(name, value))
		}
	}

	filter := Filter{
		JMESPath:     strings.TrimSpace(request.GetString("jmespath", "")),
		Regex:        strings.TrimSpace(request.GetString("regex", "")),
		ContextLines: defaultContext,
	}
	if n, ok := args["context_lines"].(float64); ok {
		filter.ContextLines = int(n)
	}
	if filter.JMESPath != "" && filter.Regex != "" {
		return "", nil, Filter{}, mcp.NewToolResultError("cannot use both regex and jmespath filters")
	}

	toolLogger := logger.ForMCP(s.logger, request.Params.Name)
	toolLogger.Debug().
		Str("action", action).
		Int("headers", len(headers)).
		Int("params", len(params)).
		Msg("executing service call via MCP")

	return action, []service.CallOption{service.WithHeaders(headers), service.WithParams(params...)}, filter, nil
}

func (s *Server) toolResult(action string, result json.RawMessage, err error, filter Filter) (*mcp.CallToolResult, error) {
	if err != nil {
		if te, ok := service.IsTransferError(err); ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", action, te.Error())), nil
		}
		s.logger.Error().Err(err).
			Str("action", action).
			Fields(errors.GetContext(err)).
			Msg("service call failed via MCP")
		return mcp.NewToolResultError(errors.UserMessage(err)), nil
	}

	body := "null"
	if len(result) > 0 {
		body = string(result)
	}
	if filter.Empty() {
		return mcp.NewToolResultText(body), nil
	}

	filtered, err := filter.Apply(s.logger, body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := json.Marshal(map[string]any{"_meta": filtered.Meta})
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(filtered.Content),
			mcp.NewTextContent(string(meta)),
		},
	}, nil
}
