package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/notevec/notevec/internal/index"
	"github.com/notevec/notevec/internal/ui"
)

var (
	syncNoPrune bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Synchronize the index with a notes directory",
	Long: `Bring the index into agreement with the directory's current file set.

This command will:
1. List all note files under the directory
2. Diff them against the rows already in the index
3. Embed and insert the missing notes in batches
4. Remove rows for notes deleted from disk

Running sync twice over an unchanged directory performs zero writes on
the second run.

Examples:
  # Sync the current directory
  notevec sync

  # Sync a specific directory
  notevec sync ~/notes

  # Only add missing notes, keep stale rows
  notevec sync --no-prune`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncNoPrune, "no-prune", false, "skip removing rows for deleted files")
}

func runSync(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	e, err := openEnv(path)
	if err != nil {
		return err
	}
	defer e.close()

	// Setup context with cancellation between chunks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	fmt.Println(ui.Header.Render("Syncing " + e.table.Root()))
	fmt.Printf("Model: %s (%s)\n\n", e.table.Index().EmbeddingModel, e.table.Index().EmbeddingProvider)

	s := e.syncer()

	lastUpdate := time.Now()
	onProgress := func(fraction float64) {
		// Throttle updates; the terminal 1.0 signal always renders.
		if fraction < 1 && time.Since(lastUpdate) < 100*time.Millisecond {
			return
		}
		lastUpdate = time.Now()
		fmt.Printf("\r\033[K%s", ui.ProgressBar(fraction, 30))
	}

	var report *index.SyncReport
	if syncNoPrune {
		report, err = s.Repopulate(ctx, onProgress)
	} else {
		report, err = s.Sync(ctx, onProgress)
	}

	fmt.Printf("\r\033[K")

	if err != nil {
		if ctx.Err() != nil {
			fmt.Println(ui.Warning.Render("Sync cancelled"))
			return nil
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	printReport(report)
	return nil
}

func printReport(r *index.SyncReport) {
	if len(r.FailedChunks) > 0 {
		fmt.Println(ui.Warning.Render("Sync finished with failed batches"))
	} else {
		fmt.Println(ui.Success.Render("Sync complete!"))
	}
	fmt.Println()
	fmt.Printf("  Files on disk:  %d\n", r.FilesOnDisk)
	fmt.Printf("  Newly indexed:  %d of %d missing\n", r.Written, r.Missing)
	if len(r.FailedChunks) > 0 {
		fmt.Printf("  Failed batches: %d\n", len(r.FailedChunks))
	}
	if r.Pruned > 0 {
		fmt.Printf("  Pruned rows:    %d\n", r.Pruned)
	}
	fmt.Printf("  Rows in index:  %d\n", r.RowCount)
	fmt.Printf("  Duration:       %s\n", r.Duration.Round(time.Millisecond))
}
