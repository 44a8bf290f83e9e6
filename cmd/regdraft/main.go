package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"regdraft/internal/config"
	"regdraft/internal/document"
	apperrors "regdraft/internal/errors"
	"regdraft/internal/logging"
	"regdraft/internal/outline"
	"regdraft/internal/replace"
	"regdraft/internal/research"
	"regdraft/internal/selection"
	"regdraft/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "regdraft",
		Short: "Regulatory document drafting backend",
	}
	configPath string
	dbPath     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the SQLite database (overrides config)")

	applyCmd.Flags().String("original", "", "Text to locate in the section")
	applyCmd.Flags().String("edited", "", "Replacement text")
	applyCmd.Flags().BoolP("write", "w", false, "Write the result back to the file")
	_ = applyCmd.MarkFlagRequired("original")
	_ = applyCmd.MarkFlagRequired("edited")

	outlineCmd.Flags().String("title", "", "Create a document with this title from the outline and save it")

	ingestCmd.Flags().String("source-id", "", "Source identifier (defaults to the file name)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(ingestCmd)
}

func loadConfig() (*config.Config, *logrus.Logger) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format)
}

// initStore initializes the SQLite store.
func initStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(cfg.Storage.Path)
}

// initRetriever returns nil when no embedding key is configured for a
// provider that needs one.
func initRetriever(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, logger logrus.FieldLogger) (*research.Retriever, error) {
	provider := strings.ToLower(cfg.Embedding.Provider)
	if provider != "ollama" && cfg.Embedding.APIKey == "" {
		return nil, nil
	}
	emb, err := research.NewEmbedder(ctx, research.EmbedderOptions{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		BaseURL:   cfg.Embedding.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return research.NewRetriever(emb, store, logger), nil
}

func selectionThresholds(cfg *config.Config) selection.Thresholds {
	th := selection.DefaultThresholds()
	th.MinSelection = cfg.Selection.MinSelection
	th.NormalizeAbove = cfg.Selection.NormalizeAbove
	th.MinWords = cfg.Selection.MinWords
	th.WordRatio = cfg.Selection.WordRatio
	th.LargeSelection = cfg.Selection.LargeSelection
	return th
}

func replaceOptions(cfg *config.Config) replace.Options {
	opts := replace.DefaultOptions()
	opts.PrefixLength = cfg.Replace.PrefixLength
	opts.ContextWindow = cfg.Replace.ContextWindow
	opts.TokenWindowTrigger = cfg.Replace.TokenWindowTrigger
	opts.TokenMatchRatio = cfg.Replace.TokenMatchRatio
	opts.SentenceMinLength = cfg.Replace.SentenceMinLength
	return opts
}

var applyCmd = &cobra.Command{
	Use:   "apply [section-file]",
	Short: "Locate text in a section file and splice in a replacement",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig()
		original, _ := cmd.Flags().GetString("original")
		edited, _ := cmd.Flags().GetString("edited")
		write, _ := cmd.Flags().GetBool("write")

		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read section: %v", err)
		}

		engine := replace.NewEngine(replaceOptions(cfg))
		res, err := engine.Replace(string(raw), original, edited)
		if err != nil {
			if nm, ok := apperrors.AsNoMatch(err); ok {
				fmt.Printf("❌ No match for %q\n", nm.Preview)
				fmt.Printf("   Tried: %s\n", strings.Join(nm.Attempted, ", "))
				if nm.Closest != "" {
					fmt.Printf("   Closest region (%.0f%% similar): %q\n", nm.Similarity*100, nm.Closest)
				}
				os.Exit(2)
			}
			log.Fatalf("Replace failed: %v", err)
		}

		fmt.Printf("✅ Matched with %s strategy at [%d:%d]\n", res.Strategy, res.Span.Start, res.Span.End)
		if !write {
			fmt.Println(res.Content)
			return
		}
		if err := os.WriteFile(args[0], []byte(res.Content), 0o644); err != nil {
			log.Fatalf("Failed to write section: %v", err)
		}
		fmt.Printf("💾 Updated %s\n", args[0])
	},
}

var outlineCmd = &cobra.Command{
	Use:   "outline [template.md]",
	Short: "Show the section outline of a markdown template",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read template: %v", err)
		}
		entries := outline.Parse(string(raw))
		fmt.Printf("📑 %d sections\n", len(entries))
		for _, e := range entries {
			marker := ""
			if e.HasTable {
				marker = " [table]"
			}
			fmt.Printf("%s- %s%s\n", strings.Repeat("  ", max(e.Level-1, 0)), e.Title, marker)
		}

		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			return
		}

		cfg, _ := loadConfig()
		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		doc := document.FromOutline(title, args[0], "", entries, time.Now())
		if err := doc.Validate(); err != nil {
			log.Fatalf("Invalid document: %v", err)
		}
		if err := store.SaveDocument(cmd.Context(), doc); err != nil {
			log.Fatalf("Failed to save document: %v", err)
		}
		fmt.Printf("🎉 Created document %s in %s\n", doc.ID, cfg.Storage.Path)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-file]",
	Short: "Chunk and embed a research source for edit context",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg, logger := loadConfig()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read source: %v", err)
		}
		sourceID, _ := cmd.Flags().GetString("source-id")
		if sourceID == "" {
			sourceID = document.Slug(strings.TrimSuffix(filepath.Base(args[0]), ".txt"))
		}

		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		retriever, err := initRetriever(ctx, cfg, store, logger)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if retriever == nil {
			log.Fatalf("Embedding API key not configured")
		}

		fmt.Printf("🧠 Embedding %s as %q...\n", args[0], sourceID)
		n, err := retriever.Ingest(ctx, sourceID, string(raw))
		if err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
		fmt.Printf("✅ Stored %d passages\n", n)
	},
}
