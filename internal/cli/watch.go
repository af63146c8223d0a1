package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/notevec/notevec/internal/ui"
	"github.com/notevec/notevec/internal/watcher"
)

var watchNoInitialSync bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a notes directory and keep its index updated",
	Long: `Watch for file changes and apply point updates to the index:
edits and new notes are re-embedded, deleted notes are removed.

A full sync runs first so the watcher starts from an agreed state.

Examples:
  # Watch the current directory
  notevec watch

  # Watch without the initial sync
  notevec watch ~/notes --no-sync`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoInitialSync, "no-sync", false, "skip the initial full sync")
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	e, err := openEnv(path)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping watcher...")
		cancel()
	}()

	s := e.syncer()

	if !watchNoInitialSync {
		fmt.Println(ui.Header.Render("Initial sync"))
		report, err := s.Sync(ctx, nil)
		if err != nil {
			return fmt.Errorf("initial sync failed: %w", err)
		}
		fmt.Printf("%d notes indexed, %d rows\n\n", report.FilesOnDisk, report.RowCount)
	}

	w := watcher.New(s, e.cfg,
		watcher.WithDebounceTime(500*time.Millisecond),
		watcher.WithEventCallback(func(event, path string) {
			switch event {
			case "index":
				fmt.Printf("%s %s\n", ui.Success.Render("updated"), path)
			case "delete":
				fmt.Printf("%s %s\n", ui.Warning.Render("removed"), path)
			}
		}),
	)

	fmt.Println(ui.Header.Render("Watching " + e.table.Root()))

	err = w.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
