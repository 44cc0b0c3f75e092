package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driving"
)

var (
	askFile   string
	askURL    string
	askFormat string
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question ...]",
	Short: "Answer one or more questions against a document",
	Long: `Answers each question from the clauses of a single document.
The document comes from --file (a local path, or - for stdin) or --url.

Examples:
  clauseseek ask --file policy.pdf "What is the grace period for premium payment?"
  clauseseek ask --url https://example.com/policy.docx \
    "Does this policy cover maternity expenses?" \
    "What is the waiting period for pre-existing diseases?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "document path, or - for stdin")
	askCmd.Flags().StringVarP(&askURL, "url", "u", "", "document URL")
	askCmd.Flags().StringVar(&askFormat, "format", "", "format hint (pdf, docx, txt or a MIME type)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output answers as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askFile == "" && askURL == "" {
		return errors.New("either --file or --url is required")
	}
	if askFile != "" && askURL != "" {
		return errors.New("--file and --url are mutually exclusive")
	}

	if err := initServices(); err != nil {
		return err
	}

	req := driving.QueryRequest{
		FormatHint: askFormat,
		Questions:  args,
	}
	switch {
	case askFile == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		req.DocumentBytes = data
	case askFile != "":
		req.DocumentURL = askFile
	default:
		req.DocumentURL = askURL
	}

	records, err := queryService.Answer(cmd.Context(), req)
	if err != nil {
		return err
	}

	if askJSON {
		return outputAnswersJSON(cmd, records)
	}
	return outputAnswersText(cmd, records)
}

func outputAnswersJSON(cmd *cobra.Command, records []domain.AnswerRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswersText(cmd *cobra.Command, records []domain.AnswerRecord) error {
	for i, rec := range records {
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("Q: %s\n", rec.Question)
		cmd.Printf("A: %s\n", rec.Answer)

		if rec.Degraded {
			cmd.Println("   (degraded answer)")
			continue
		}

		detail := fmt.Sprintf("   confidence %.2f", rec.Confidence)
		if len(rec.SupportingChunkIDs) > 0 {
			detail += fmt.Sprintf(", clauses %s", joinInts(rec.SupportingChunkIDs))
		}
		if rec.Truncated {
			detail += ", context truncated"
		}
		cmd.Println(detail)
	}
	return nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
