// Package mcp exposes the Dungeon Master context tools over the Model Context
// Protocol, so an external agent can classify actions, assemble turn context,
// read and write context files, journal progression events and roll dice.
//
// The server is served over Streamable HTTP by the main service (see
// [Handler]) and over stdio by "dmctl mcp" (see [ServeStdio]).
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/dungeonmaster/internal/campaignctx"
	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
	"github.com/MrWong99/dungeonmaster/internal/dice"
	"github.com/MrWong99/dungeonmaster/internal/observe"
	"github.com/MrWong99/dungeonmaster/internal/progression"
)

// ServerName identifies the server during the MCP handshake.
const ServerName = "dungeonmaster"

// DocumentURIPrefix prefixes the URI of every context-file resource.
const DocumentURIPrefix = "context://documents/"

// Deps are the components the tools operate on. Store is required; the
// others default to fresh instances over Store.
type Deps struct {
	Store      *contextfile.Store
	Assembler  *campaignctx.Assembler
	Classifier *classify.Classifier
	Recorder   *progression.Recorder
	Dice       *dice.Roller
	Metrics    *observe.Metrics
	Logger     *slog.Logger
}

func (d *Deps) fill() error {
	if d.Store == nil {
		return fmt.Errorf("mcp: document store must not be nil")
	}
	if d.Classifier == nil {
		d.Classifier = classify.Default()
	}
	if d.Assembler == nil {
		d.Assembler = campaignctx.NewAssembler(d.Store, campaignctx.WithClassifier(d.Classifier))
	}
	if d.Recorder == nil {
		d.Recorder = progression.NewRecorder(d.Store)
	}
	if d.Dice == nil {
		d.Dice = dice.NewRoller(nil)
	}
	if d.Metrics == nil {
		d.Metrics = observe.DefaultMetrics()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return nil
}

// NewServer builds an MCP server with every tool and the context-file
// resources registered.
func NewServer(version string, deps Deps) (*mcpsdk.Server, error) {
	if err := deps.fill(); err != nil {
		return nil, err
	}
	s := mcpsdk.NewServer(&mcpsdk.Implementation{Name: ServerName, Version: version}, nil)
	t := &toolset{deps: deps}
	t.register(s)

	s.AddResource(&mcpsdk.Resource{
		Name:        "context_files",
		Title:       "Context files",
		Description: "Index of every context file in the campaign",
		MIMEType:    "application/json",
		URI:         "context://documents",
	}, t.documentIndex)
	s.AddResourceTemplate(&mcpsdk.ResourceTemplate{
		Name:        "context_file",
		Title:       "Context file",
		Description: "Markdown body of one context file",
		MIMEType:    "text/markdown",
		URITemplate: DocumentURIPrefix + "{id}",
	}, t.documentResource)
	return s, nil
}

// Handler serves s over Streamable HTTP.
func Handler(s *mcpsdk.Server) http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return s }, nil)
}

// ServeStdio serves s on stdin/stdout until ctx is done or the client
// disconnects.
func ServeStdio(ctx context.Context, s *mcpsdk.Server) error {
	if err := s.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: serve stdio: %w", err)
	}
	return nil
}

func (t *toolset) documentIndex(_ context.Context, req *mcpsdk.ReadResourceRequest) (*mcpsdk.ReadResourceResult, error) {
	out, err := encode(t.listDocuments())
	if err != nil {
		return nil, err
	}
	return &mcpsdk.ReadResourceResult{Contents: []*mcpsdk.ResourceContents{{
		URI:      req.Params.URI,
		MIMEType: "application/json",
		Text:     out,
	}}}, nil
}

func (t *toolset) documentResource(_ context.Context, req *mcpsdk.ReadResourceRequest) (*mcpsdk.ReadResourceResult, error) {
	uri := req.Params.URI
	id, ok := strings.CutPrefix(uri, DocumentURIPrefix)
	if !ok {
		return nil, mcpsdk.ResourceNotFoundError(uri)
	}
	doc, ok := t.deps.Store.Get(id)
	if !ok {
		return nil, mcpsdk.ResourceNotFoundError(uri)
	}
	return &mcpsdk.ReadResourceResult{Contents: []*mcpsdk.ResourceContents{{
		URI:      uri,
		MIMEType: "text/markdown",
		Text:     doc.Content,
	}}}, nil
}
