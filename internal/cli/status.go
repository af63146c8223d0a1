package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notevec/notevec/internal/config"
	"github.com/notevec/notevec/internal/store"
	"github.com/notevec/notevec/internal/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show all note indexes and their row counts",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	indexes, err := st.ListIndexes()
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	if len(indexes) == 0 {
		fmt.Println("No note indexes found.")
		fmt.Println("\nRun 'notevec sync [path]' to create one.")
		return nil
	}

	fmt.Println(ui.Header.Render("Note Indexes"))
	fmt.Println()

	for _, idx := range indexes {
		count, err := st.CountNotes(idx.ID)
		if err != nil {
			fmt.Printf("%s  (unavailable: %v)\n", ui.NotePath.Render(idx.RootPath), err)
			continue
		}

		fmt.Printf("%s\n", ui.Highlight.Render(idx.RootPath))
		fmt.Printf("  Model:    %s (%s)\n", idx.EmbeddingModel, idx.EmbeddingProvider)
		fmt.Printf("  Rows:     %d\n", count)
		fmt.Printf("  Updated:  %s\n", idx.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}

	return nil
}

// resetCmd clears all rows of one index.
var resetCmd = &cobra.Command{
	Use:   "reset [path]",
	Short: "Remove every row of a directory's index",
	Long: `Clear all rows from the index for a directory. The index itself is kept;
the next sync rebuilds it from scratch. Row deletion is best-effort.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	e, err := openEnv(path)
	if err != nil {
		return err
	}
	defer e.close()

	e.table.DeleteAll()

	fmt.Println(ui.Success.Render(fmt.Sprintf("Index for '%s' cleared.", e.table.Root())))
	return nil
}

// configCmd shows the active configuration source.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		if path := config.ConfigFilePath(); path != "" {
			fmt.Printf("Config file: %s\n", path)
		} else {
			fmt.Printf("Config file: none (defaults), global path %s\n", config.GlobalConfigPath())
		}
		fmt.Println()
		fmt.Printf("Database:   %s\n", cfg.Database.Path)
		fmt.Printf("Provider:   %s\n", cfg.Embeddings.Provider)
		switch cfg.Embeddings.Provider {
		case "ollama":
			fmt.Printf("Model:      %s (%s)\n", cfg.Embeddings.Ollama.Model, cfg.Embeddings.Ollama.URL)
		case "openai":
			fmt.Printf("Model:      %s\n", cfg.Embeddings.OpenAI.Model)
		}
		fmt.Printf("Extensions: %v\n", cfg.Notes.Extensions)
		fmt.Printf("Batch size: %d\n", cfg.Sync.BatchSize)
		return nil
	},
}
