package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"medrag/internal/domain"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search indexed documents",
	Long: `Search for the passages most similar to a question.

Examples:
  medrag query -q "early signs of diabetes"
  medrag query -q "asthma triggers" -k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	p, err := openPipeline(GetConfig(), false)
	if err != nil {
		return err
	}
	defer p.Close()

	passages, err := p.retrieve.Retrieve(cmd.Context(), queryText, queryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		if passages == nil {
			passages = []domain.Passage{}
		}
		output, err := json.MarshalIndent(passages, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	if len(passages) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(passages), queryText)
	printPassages(passages)
	return nil
}

func printPassages(passages []domain.Passage) {
	for i, p := range passages {
		fmt.Printf("--- [%d] %s p.%d (score: %.2f) ---\n", i+1, p.Source, p.Page, p.Score)
		// Truncate long text for display
		text := p.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
}
