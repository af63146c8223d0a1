package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/notevec/notevec/internal/store"
	"github.com/notevec/notevec/internal/ui"
)

var (
	searchLimit    int
	searchMinScore float64
	searchPrefix   string
	searchJSON     bool
	searchRender   bool
	searchPath     string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes using semantic similarity",
	Long: `Search your notes with a natural language query.

The query is embedded with the same model the index was built with, and
results are ranked by vector similarity rather than keyword overlap.

Examples:
  # Basic search over the current directory's index
  notevec search "meeting notes about the budget"

  # Search a specific notes directory
  notevec search "travel plans" --path ~/notes

  # Limit results and filter weak matches
  notevec search "recipes" -m 5 --min-score 0.4

  # Restrict to a subfolder
  notevec search "standup" --prefix work/

  # Render matching notes as markdown
  notevec search "reading list" --render`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "m", 10, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0.0, "minimum similarity score (0-1)")
	searchCmd.Flags().StringVar(&searchPrefix, "prefix", "", "only search notes under this path prefix")
	searchCmd.Flags().StringVar(&searchPath, "path", ".", "notes directory whose index to search")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchRender, "render", false, "render note content as markdown")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	e, err := openEnv(searchPath)
	if err != nil {
		return err
	}
	defer e.close()

	pred := store.All()
	if searchPrefix != "" {
		pred = store.PathPrefix(searchPrefix)
	}

	results, err := e.table.Search(context.Background(), query, searchLimit, pred)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	// Filter by minimum score
	if searchMinScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= searchMinScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No matching notes found.")
		return nil
	}

	var renderer *glamour.TermRenderer
	if searchRender {
		renderer, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			log.Warn("Failed to create markdown renderer", "error", err)
			renderer = nil
		}
	}

	for i, r := range results {
		fmt.Printf("%s %s\n",
			ui.NotePath.Render(r.Record.NotePath),
			ui.FormatScore(r.Score))

		body := r.Record.Content
		if !searchRender {
			body = snippet(body, 200)
		}
		if body != "" {
			if renderer != nil {
				rendered, err := renderer.Render(r.Record.Content)
				if err == nil {
					body = rendered
				}
			}
			fmt.Println(ui.ResultBody.Render(body))
		}

		if i < len(results)-1 {
			fmt.Println(ui.HorizontalRule(40))
		}
	}

	return nil
}

// snippet returns the first maxLen characters of s collapsed to one line.
func snippet(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
