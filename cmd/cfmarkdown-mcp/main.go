package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/cfmarkdown/client"
	"github.com/use-agent/cfmarkdown/config"
	"github.com/use-agent/cfmarkdown/models"
)

func main() {
	cfg := config.Load()
	mediator := client.NewMediatorClient(cfg.Client.ServerURL, cfg.Client.Timeout,
		client.WithAccessKey(os.Getenv("CFMD_ACCESS_KEY")))

	if err := server.ServeStdio(newServer(mediator)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(sc client.Scraper) *server.MCPServer {
	s := server.NewMCPServer(
		"cfmarkdown",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_markdown",
		mcp.WithDescription("Render a web page in Cloudflare's headless browser and return it as Markdown."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The absolute http(s) URL of the page to extract"),
		),
		mcp.WithString("account_id",
			mcp.Description("Cloudflare account ID (default: CF_ACCOUNT_ID environment variable)"),
		),
		mcp.WithString("api_token",
			mcp.Description("Cloudflare API token with Browser Rendering Edit permission (default: CF_API_TOKEN environment variable)"),
		),
	)
	s.AddTool(scrapeTool, handleScrapeMarkdown(sc))
	return s
}

func handleScrapeMarkdown(sc client.Scraper) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		req := &models.ScrapeRequest{
			URL:       url,
			AccountID: argOrEnv(request, "account_id", "CF_ACCOUNT_ID"),
			APIToken:  argOrEnv(request, "api_token", "CF_API_TOKEN"),
		}
		if err := req.Validate(); err != nil {
			return mcp.NewToolResultError(errorMessage(err)), nil
		}
		req.Normalize()

		md, err := sc.Scrape(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(errorMessage(err)), nil
		}
		return mcp.NewToolResultText(md), nil
	}
}

// argOrEnv returns the argument, or the environment variable when the
// argument is absent or blank. Clients often send unset optionals as "".
func argOrEnv(request mcp.CallToolRequest, key, env string) string {
	if v := strings.TrimSpace(request.GetString(key, "")); v != "" {
		return v
	}
	return os.Getenv(env)
}

func errorMessage(err error) string {
	var scrapeErr *models.ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr.Message
	}
	return err.Error()
}
