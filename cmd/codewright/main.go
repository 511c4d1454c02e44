package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"codewright/internal/agent"
	"codewright/internal/config"
	"codewright/internal/console"
	"codewright/internal/llm"
	"codewright/internal/logging"
	"codewright/internal/tools"
	"codewright/internal/tools/core"
	"codewright/internal/tools/shell"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	workspace   string
	modelName   string
	autoApprove bool
	diffOnly    bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "codewright [task]",
	Short: "codewright - local coding agent",
	Long: `codewright is a local CLI coding agent.

It drives a think/act loop against an OpenAI-compatible model backend:
the model's replies are parsed into tool calls (list, read, write, edit,
run, search) executed in the working directory, and every result is fed
back as the next observation. Edits go through a search/replace engine
that refuses to touch a file the session has not read.`,
	Args: cobra.MinimumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTask,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "working directory for the task")
	rootCmd.Flags().StringVarP(&modelName, "model", "m", "", "model name override (persisted as the new preference)")
	rootCmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "auto-approve all mutating actions")
	rootCmd.Flags().BoolVar(&diffOnly, "diff-only", false, "render diffs instead of applying writes and edits")
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Interrupts are honored at iteration boundaries, not mid-call.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	task := strings.Join(args, " ")

	cfg, err := config.LoadForWorkspace(workspace)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Initialize(workspace); err != nil {
		logger.Warn("File logging unavailable", zap.Error(err))
	}
	defer logging.CloseAll()

	model := resolveModel(cfg)
	logger.Info("Starting task",
		zap.String("task", task),
		zap.String("model", model),
		zap.String("workspace", workspace))

	client := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLMTimeout(),
	})

	if !client.CheckHealth(ctx) {
		// Local servers sometimes lack /models; the loop surfaces a real
		// backend failure on the first completion anyway.
		logger.Warn("Model backend health probe failed", zap.String("base_url", cfg.LLM.BaseURL))
	}

	ws, err := tools.NewWorkspace(workspace)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	registry := tools.NewRegistry()
	core.Register(registry, ws, core.Options{DiffOnly: diffOnly || cfg.Safety.DiffOnly})
	shell.Register(registry, ws, cfg.CommandTimeout())

	ui := console.NewPrinter()

	// One reader owns stdin: the confirmer's when interactive, a plain
	// buffered reader otherwise.
	var confirmer agent.Confirmer = agent.AutoApprove{}
	stdin := bufio.NewReader(os.Stdin)
	readLine := func() (string, error) {
		line, err := stdin.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	if cfg.Safety.ConfirmDangerous && !autoApprove {
		interactive := agent.NewConsoleConfirmer(os.Stdin, os.Stdout,
			cfg.ConfirmTimeout(), cfg.Safety.OnTimeout != "deny")
		confirmer = interactive
		readLine = func() (string, error) {
			line, err := interactive.ReadLine()
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(line), nil
		}
	}

	sessionID := uuid.NewString()
	conv := agent.NewConversation(agent.BuildSystemPrompt(ws.Root(), registry), cfg.History.Limit)

	loop := agent.New(agent.Options{
		Client:    client,
		Registry:  registry,
		Conv:      conv,
		Confirmer: confirmer,
		UI:        ui,
		SessionID: sessionID,
		UserInput: func(prompt string) (string, error) {
			fmt.Printf("%s: ", prompt)
			return readLine()
		},
	})

	if err := loop.Run(ctx, task); err != nil {
		logger.Error("Task failed", zap.Error(err))
		ui.Error(err.Error())
		return err
	}
	return nil
}

// resolveModel picks the model for this run: an explicit --model flag
// wins and is persisted, then the one-line preference file, then the
// configured default.
func resolveModel(cfg *config.Config) string {
	if modelName != "" {
		if err := config.SaveModelPreference(workspace, modelName); err != nil {
			logger.Warn("Could not persist model preference", zap.Error(err))
		}
		return modelName
	}
	if pref := config.LoadModelPreference(workspace); pref != "" {
		return pref
	}
	return cfg.LLM.Model
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
