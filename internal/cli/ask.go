package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askText    string
	askDryRun  bool
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a single question",
	Long: `Retrieve context for a question and ask the configured chat model.
With --dry-run the rendered prompt is printed instead and no model is called.

Examples:
  medrag ask -q "What is hypertension?"
  medrag ask -q "What is hypertension?" --sources
  medrag ask -q "What is hypertension?" --dry-run`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question to answer (required)")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the prompt without calling the model")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the passages the answer was grounded on")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	p, err := openPipeline(GetConfig(), !askDryRun)
	if err != nil {
		return err
	}
	defer p.Close()

	if askDryRun {
		prompt, _, err := p.answer.RenderPrompt(cmd.Context(), askText)
		if err != nil {
			return fmt.Errorf("failed to render prompt: %w", err)
		}
		fmt.Println(prompt)
		return nil
	}

	answer, err := p.answer.Ask(cmd.Context(), askText)
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}
	fmt.Println(answer.Text)

	if askSources && len(answer.Sources) > 0 {
		fmt.Printf("\nSources:\n\n")
		printPassages(answer.Sources)
	}
	return nil
}
