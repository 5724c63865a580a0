// Command parley serves configured conversational agents over HTTP.
//
// Usage:
//
//	parley serve --config config.yaml
//	parley validate --config config.yaml
//	parley schema > config.schema.json
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	parley "github.com/kadirpekel/parley"
	"github.com/kadirpekel/parley/pkg/agent"
	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/embedders"
	"github.com/kadirpekel/parley/pkg/knowledge"
	"github.com/kadirpekel/parley/pkg/llms"
	"github.com/kadirpekel/parley/pkg/logger"
	"github.com/kadirpekel/parley/pkg/memory"
	"github.com/kadirpekel/parley/pkg/observability"
	"github.com/kadirpekel/parley/pkg/server"
	"github.com/kadirpekel/parley/pkg/tools"
	"github.com/kadirpekel/parley/pkg/vector"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP server."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the config file."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"config.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (text, json)." default:"text"`
	LogFile   string `help:"Log file path (empty = stderr)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(parley.GetVersion().String())
	return nil
}

// ValidateCmd loads the config and reports the first problem found.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	fmt.Printf("%s: OK (%d agents)\n", cli.Config, len(cfg.Agents))
	return nil
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port int `help:"Override the configured listen port."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	llm, err := llms.NewGeminiProviderFromConfig(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create model provider: %w", err)
	}

	store, err := newConversationStore(&cfg.Memory)
	if err != nil {
		return fmt.Errorf("failed to create conversation store: %w", err)
	}
	defer store.Close()

	metrics := observability.NewMetrics()

	opts := []agent.Option{
		agent.WithMetrics(metrics),
		agent.WithHistoryLimit(cfg.Memory.HistoryLimit),
	}

	retriever, cleanup, err := newRetriever(cfg)
	if err != nil {
		slog.Warn("Knowledge retrieval disabled", "error", err)
	} else if retriever != nil {
		opts = append(opts, agent.WithRetriever(retriever))
		defer cleanup()
	}

	mcp := tools.NewMCPClient()
	cache := tools.NewSchemaCache(mcp)
	loops := tools.NewLoopController(cache, mcp, llm, tools.DefaultClassifier{})
	opts = append(opts,
		agent.WithLoopController(loops),
		agent.WithAPIExecutor(tools.NewAPIExecutor(llm)),
	)

	orch, err := agent.NewOrchestrator(llm, store, opts...)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, cfg.Agents, orch, metrics)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
	}()

	slog.Info("Starting parley", "agents", len(cfg.Agents), "port", cfg.Server.Port)
	return srv.Start()
}

// newConversationStore selects the memory backend. SQL failures fall through
// to the caller; a misconfigured store should stop startup, not silently
// drop history.
func newConversationStore(cfg *config.MemoryConfig) (memory.ConversationStore, error) {
	if cfg.Backend == "sql" {
		return memory.NewSQLConversationStoreFromConfig(cfg)
	}
	return memory.NewInMemoryConversationStore(), nil
}

// newRetriever wires the vector store and embedder. Returns a cleanup func
// that closes the vector store.
func newRetriever(cfg *config.Config) (*knowledge.Retriever, func(), error) {
	vectorStore, err := vector.NewChromemProvider(cfg.Vector)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := embedders.NewOllamaEmbedderFromConfig(&cfg.Embedder)
	if err != nil {
		vectorStore.Close()
		return nil, nil, err
	}

	retriever, err := knowledge.NewRetriever(vectorStore, embedder)
	if err != nil {
		vectorStore.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := vectorStore.Close(); err != nil {
			slog.Debug("Failed to close vector store", "error", err)
		}
	}
	return retriever, cleanup, nil
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("parley"),
		kong.Description("parley - configurable conversational agents"),
		kong.UsageOnError(),
	)

	if err := logger.Init(logger.ParseLevel(cli.LogLevel), cli.LogFormat, cli.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx.FatalIfErrorf(ctx.Run(&cli))
}
