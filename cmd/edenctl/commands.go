package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eden-backend/application/batch"
	"eden-backend/application/ports"
	"eden-backend/application/services"
	"eden-backend/infrastructure/config"
	"eden-backend/infrastructure/di"
	"eden-backend/pkg/auth"
)

var (
	configPath string
	userID     string
	logLevel   string
	files      []string
	email      string
	sessionTTL time.Duration

	rootCmd = &cobra.Command{
		Use:           "edenctl",
		Short:         "Capture and query an Eden knowledge base from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	importCmd = &cobra.Command{
		Use:   "import [url...]",
		Short: "Capture URLs and bookmark or document files, printing progress events as JSON lines",
		RunE:  runImport,
	}

	searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Search saved items",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question answered from saved items",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue a bookmarklet API token",
		Args:  cobra.NoArgs,
		RunE:  runToken,
	}

	sessionCmd = &cobra.Command{
		Use:   "session-token",
		Short: "Sign a development session JWT with the configured secret",
		Args:  cobra.NoArgs,
		RunE:  runSessionToken,
	}

	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index for a user from the store",
		Args:  cobra.NoArgs,
		RunE:  runReindex,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("EDEN_CONFIG_FILE"), "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "cli", "user id to act as")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
	importCmd.Flags().StringArrayVarP(&files, "file", "f", nil, "bookmark export or document to import (repeatable)")
	sessionCmd.Flags().StringVar(&email, "email", "", "email claim")
	sessionCmd.Flags().DurationVar(&sessionTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(importCmd, searchCmd, askCmd, tokenCmd, sessionCmd, reindexCmd)
}

// withContainer builds the dependencies, runs fn and releases them.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *di.Container) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") || os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = logLevel
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		cleanup()
		_ = container.Logger.Sync()
	}()
	return fn(ctx, container)
}

func runImport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(files) == 0 {
		return fmt.Errorf("nothing to import: pass URLs or --file")
	}
	return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
		out := json.NewEncoder(cmd.OutOrStdout())
		emit := func(e batch.Event) { _ = out.Encode(e) }

		var failed int
		if len(args) > 0 {
			inputs := batch.URLInputs(args, 0)
			res := c.Runner.Run(ctx, userID, inputs, batch.RunOptions{Source: services.SourceCLI}, emit)
			failed += res.Failed
		}
		for _, path := range files {
			inputs := fileInputs(ctx, c.Extractor, path)
			res := c.Runner.Run(ctx, userID, inputs, batch.RunOptions{
				Source: services.SourceCLI,
				Label:  filepath.Base(path),
			}, emit)
			failed += res.Failed
		}
		if failed > 0 {
			return fmt.Errorf("%d input(s) failed", failed)
		}
		return nil
	})
}

// fileInputs extracts a local file. Bookmark exports expand to their URLs;
// read failures become a single failed input so they show up in the events.
func fileInputs(ctx context.Context, extractor ports.ContentExtractor, path string) []batch.Input {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return []batch.Input{{Label: name, Err: err}}
	}
	defer f.Close()

	ext, err := extractor.ExtractFile(ctx, ports.FileSource{Name: name, Reader: f})
	if err != nil {
		return []batch.Input{{Label: name, Err: err}}
	}
	if ext.IsBookmarkExport() {
		return batch.BookmarkInputs(ext.Bookmarks, 0)
	}
	return []batch.Input{{Extraction: ext, Label: name}}
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
		items, err := c.Items.Search(ctx, userID, joinArgs(args))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\n", item.ID, item.Title, item.URL)
		}
		return nil
	})
}

func runAsk(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
		reply, err := c.Chat.Ask(ctx, userID, joinArgs(args))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, reply.Reply)
		if len(reply.Sources) > 0 {
			fmt.Fprintln(w)
			printList(w, "Sources:", reply.Sources)
		}
		return nil
	})
}

func runToken(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
		token, err := c.Storage.Tokens.IssueToken(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	})
}

func runSessionToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	token, err := signSessionToken(cfg, userID, email, sessionTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

// signSessionToken issues a JWT the API's validator accepts for userID.
func signSessionToken(cfg *config.Config, user, mail string, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("JWT_SECRET is not configured")
	}
	generator, err := auth.NewJWTGenerator(cfg.JWTSecret, cfg.JWTIssuer, ttl)
	if err != nil {
		return "", err
	}
	return generator.GenerateToken(user, mail)
}

func runReindex(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
		n, err := c.Storage.Items.Reindex(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d item(s)\n", n)
		return nil
	})
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

func printList(w io.Writer, header string, values []string) {
	fmt.Fprintln(w, header)
	for _, v := range values {
		fmt.Fprintf(w, "  - %s\n", v)
	}
}
