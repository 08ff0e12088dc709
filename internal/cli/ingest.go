package cli

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"medrag/internal/adapter/chunker"
	"medrag/internal/adapter/embedding"
	"medrag/internal/adapter/fs"
	"medrag/internal/adapter/loader"
	"medrag/internal/adapter/store"
	"medrag/internal/usecase"
)

var ingestRebuild bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index documents for retrieval",
	Long: `Load, split and embed documents into the local index.
Without arguments the sources from the config file are used.
Unchanged files are skipped unless --rebuild is given.

Examples:
  medrag ingest                       # Index configured sources
  medrag ingest documents/book.pdf    # Index a single file
  medrag ingest notes/ --rebuild      # Rebuild the whole index`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "discard the existing index and rebuild it")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	sources := cfg.Ingest.Sources
	if len(args) > 0 {
		sources = args
	}
	if len(sources) == 0 {
		return fmt.Errorf("no sources to ingest")
	}

	embedder, err := embedding.New(cfg.Embedding, nil)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	dbPath := cfg.IndexPath()
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	vectors, err := store.NewBoltVectorStore(st.DB(), embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}

	ingestUC := usecase.NewIngestUseCase(
		cfg,
		st,
		vectors,
		fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes),
		loader.New(),
		chunker.NewRecursiveSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		embedder,
		slog.Default(),
	)

	fmt.Printf("Ingesting %d source(s) with %s...\n", len(sources), embedder.ModelName())
	start := time.Now()

	result, err := ingestUC.Ingest(cmd.Context(), sources, ingestRebuild, newProgress())
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if result.Rebuilt {
		fmt.Printf("\nIndex rebuilt: %s\n", result.RebuildReason)
	}
	fmt.Printf("\nIngest complete in %s:\n", formatDuration(time.Since(start)))
	fmt.Printf("  Files indexed:  %d\n", result.FilesIndexed)
	fmt.Printf("  Files skipped:  %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files deleted:  %d (removed)\n", result.FilesDeleted)
	fmt.Printf("  Chunks created: %d\n", result.ChunksCreated)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", dbPath)
	return nil
}

// newProgress returns a progress callback that lazily creates the bar
// once the total file count is known.
func newProgress() usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(processed, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()

		if total == 0 {
			return
		}
		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 && processed < total {
			rate := float64(processed) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
