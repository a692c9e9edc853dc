// Command comfy-mcp-server exposes image generation on a ComfyUI backend as
// MCP tools over stdio. Run with --nodes to inspect the configured workflow's
// nodes or --schema to print the advertised tool schemas.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/leofalp/comfymcp/core/comfy"
	"github.com/leofalp/comfymcp/core/workflow"
	"github.com/leofalp/comfymcp/internal/config"
	"github.com/leofalp/comfymcp/internal/mcp"
	"github.com/leofalp/comfymcp/providers/tool"
	"github.com/leofalp/comfymcp/providers/tool/generateimage"
	"github.com/leofalp/comfymcp/providers/tool/generateprompt"
)

const (
	serverName    = "Comfy MCP Server"
	serverVersion = "1.0.0"
)

func main() {
	// stdout carries the protocol; everything human-readable goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--nodes":
			exitOn(printNodes())
		case "--schema":
			exitOn(printSchema(logger))
		case "--help":
			printHelp()
		default:
			fmt.Fprintf(os.Stderr, "Unknown option: %s\nUse --help for usage information\n", os.Args[1])
			os.Exit(2)
		}
		return
	}

	exitOn(run(logger))
}

func run(logger *slog.Logger) error {
	cfg := config.FromEnvironment()
	if errs := cfg.ValidateRequired(); len(errs) > 0 {
		return startupError(errs)
	}

	client := comfy.NewClient(cfg.ComfyURL,
		comfy.WithExternalURL(cfg.ComfyURLExternal),
		comfy.WithPollInterval(cfg.PollInterval),
		comfy.WithMaxWait(cfg.MaxWait),
		comfy.WithLogger(logger),
	)

	generator, err := generateimage.New(cfg, client, logger)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w\nRun with --nodes to see available nodes in your workflow", serverName, err)
	}

	catalog := tool.NewCatalog(generator.Tool())

	if cfg.HasOllamaConfig() {
		expander, err := generateprompt.New(cfg)
		if err != nil {
			return fmt.Errorf("configuring prompt expansion: %w", err)
		}
		catalog.Add(expander.Tool())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", "tools", catalog.Size(), "backend", cfg.ComfyURL)
	return mcp.NewServer(serverName, serverVersion, catalog, logger).Serve(ctx, os.Stdin, os.Stdout)
}

// printNodes lists every node in the configured workflow so operators can
// pick identifiers for the *_NODE_ID variables.
func printNodes() error {
	cfg := config.FromEnvironment()
	if cfg.WorkflowPath == "" {
		return fmt.Errorf("COMFY_WORKFLOW_JSON_FILE environment variable not set")
	}

	template, err := workflow.Load(cfg.WorkflowPath)
	if err != nil {
		return err
	}

	fmt.Printf("Workflow: %s (%s representation, %d nodes)\n\n", cfg.WorkflowPath, template.Representation(), template.Len())
	for _, id := range template.NodeIDs() {
		n, _ := template.Node(id)
		if n.Title != "" {
			fmt.Printf("  [%s] %s (%q)\n", id, n.ClassType, n.Title)
		} else {
			fmt.Printf("  [%s] %s\n", id, n.ClassType)
		}
	}
	fmt.Println("\nCommon node types to look for:")
	fmt.Println("  positive/negative prompt: CLIPTextEncode")
	fmt.Println("  output: SaveImage or Image Save")
	return nil
}

// printSchema prints the advertised tool parameter schemas.
func printSchema(logger *slog.Logger) error {
	cfg := config.FromEnvironment()

	catalog := tool.NewCatalog()
	if cfg.WorkflowPath != "" && cfg.ComfyURL != "" {
		generator, err := generateimage.New(cfg, comfy.NewClient(cfg.ComfyURL), logger)
		if err != nil {
			return err
		}
		catalog.Add(generator.Tool())
	}
	if cfg.HasOllamaConfig() {
		expander, err := generateprompt.New(cfg)
		if err != nil {
			return err
		}
		catalog.Add(expander.Tool())
	}

	fmt.Printf("%s - Available Tools\n", serverName)
	for _, info := range catalog.Infos() {
		fmt.Printf("\nTool: %s\n", info.Name)
		fmt.Printf("Description: %s\n", info.Description)
		schema, err := json.MarshalIndent(info.Parameters, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("Parameters: %s\n", schema)
	}
	return nil
}

func printHelp() {
	fmt.Println(serverName)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  comfy-mcp-server           Run the MCP server on stdio")
	fmt.Println("  comfy-mcp-server --schema  Show available tools and parameters")
	fmt.Println("  comfy-mcp-server --nodes   Show workflow nodes and their IDs")
	fmt.Println("  comfy-mcp-server --help    Show this help message")
}

func startupError(errs []string) error {
	msg := "failed to start " + serverName + ":"
	for _, e := range errs {
		msg += "\n" + e
	}
	return fmt.Errorf("%s", msg)
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
