package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/fetch"
)

const (
	serverName    = "res-scraper"
	serverVersion = "1.0.0"

	hostEvictionInterval = 5 * time.Minute
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig *config.AppConfig // Must already be validated
	Transport string            // "stdio" or "sse"
	Port      int
	Logger    *logrus.Logger
}

// Server exposes the resource crawler as MCP tools. All jobs share one
// HTTP client and one per-host semaphore pool.
type Server struct {
	mcpServer  *server.MCPServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager
	fetcher    *fetch.Fetcher
	hostSems   *fetch.HostSemaphorePool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	log := cfg.Logger.WithField("component", "mcp")
	client := fetch.NewClient(cfg.AppConfig.HTTPClientSettings, log)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		mcpServer:  server.NewMCPServer(serverName, serverVersion, server.WithLogging()),
		cfg:        cfg,
		log:        log,
		jobManager: NewJobManager(),
		fetcher:    fetch.NewFetcher(client, cfg.AppConfig, log.WithField("component", "fetcher")),
		hostSems:   fetch.NewHostSemaphorePool(cfg.AppConfig.MaxRequestsPerHost, log.WithField("component", "hostsem")),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	downloadTool := mcp.NewTool("download_resources",
		mcp.WithDescription("Fetch a web page and download every linked resource of the selected categories into category folders. Runs in the background and returns a job ID."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http:// or https:// URL of the page to scan"),
		),
		mcp.WithString("types",
			mcp.Required(),
			mcp.Description("Comma-separated categories: Media, Image, Document, Other (or menu numbers 1-4)"),
		),
	)
	s.mcpServer.AddTool(downloadTool, s.handleDownloadResources)

	statusTool := mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status and counters of a download job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by download_resources"),
		),
	)
	s.mcpServer.AddTool(statusTool, s.handleGetJobStatus)

	listJobsTool := mcp.NewTool("list_jobs",
		mcp.WithDescription("List download jobs started by this server, newest first"),
		mcp.WithBoolean("active_only",
			mcp.Description("Only include pending or running jobs (default: false)"),
		),
	)
	s.mcpServer.AddTool(listJobsTool, s.handleListJobs)

	cancelTool := mcp.NewTool("cancel_job",
		mcp.WithDescription("Cancel a pending or running download job. Files already written are kept."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by download_resources"),
		),
	)
	s.mcpServer.AddTool(cancelTool, s.handleCancelJob)

	classifyTool := mcp.NewTool("classify_url",
		mcp.WithDescription("Resolve a reference and report which category it would be downloaded into"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL, or a reference relative to base_url"),
		),
		mcp.WithString("base_url",
			mcp.Description("Page URL used to resolve relative references (optional)"),
		),
	)
	s.mcpServer.AddTool(classifyTool, s.handleClassifyURL)

	categoriesTool := mcp.NewTool("list_categories",
		mcp.WithDescription("List resource categories with their menu numbers and file extensions"),
	)
	s.mcpServer.AddTool(categoriesTool, s.handleListCategories)

	s.log.Debugf("Registered %d MCP tools", 6)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	go s.hostSems.RunEviction(s.ctx, hostEvictionInterval)

	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		return server.NewSSEServer(s.mcpServer).Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels running jobs and background housekeeping
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()
	s.cancel()
	s.fetcher.Client().CloseIdleConnections()
	return nil
}
