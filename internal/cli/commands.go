package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/seanblong/contextselect/internal/auth"
	"github.com/seanblong/contextselect/internal/ingest"
	"github.com/seanblong/contextselect/internal/retrieval"
	"github.com/seanblong/contextselect/internal/selector"
	"github.com/seanblong/contextselect/pkg/models"
	"github.com/spf13/cobra"
)

var errNoQuestion = errors.New("question is required")

func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc
}

func newAnalyzeCommand(opts *options) *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print the analysis of a question as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(question) == "" {
				return errNoQuestion
			}
			a, closeCache, err := newAnalyzer(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			return printJSON(cmd.OutOrStdout(), a.Analyze(cmd.Context(), strings.TrimSpace(question)))
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to analyze (required)")
	return cmd
}

func newSelectCommand(opts *options) *cobra.Command {
	var (
		question  string
		chunkFile string
		withStats bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the chunks of a chunk file that answer a question",
		Long: `Select loads a chunk file, analyzes the question and prints the selection.

Examples:
  ctxselect select -q "금연구역 지정 절차" --chunks chunks.json
  ctxselect select -q "과태료 기준" --chunks chunks.json --token-budget 4000 --stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(question) == "" {
				return errNoQuestion
			}
			if chunkFile == "" {
				return errors.New("--chunks is required")
			}

			chunks, err := ingest.ReadChunkFile(chunkFile)
			if err != nil {
				return fmt.Errorf("read chunks: %w", err)
			}

			a, closeCache, err := newAnalyzer(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			svc := retrieval.NewService(a, selector.New(selector.WithTokenBudget(opts.cfg.TokenBudget)), nil)
			svc.SetChunks(chunks)

			res, stats := svc.Select(cmd.Context(), question, nil)
			if withStats {
				return printJSON(cmd.OutOrStdout(), struct {
					models.SelectionResult
					Stats selector.Stats `json:"stats"`
				}{res, stats})
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to answer (required)")
	cmd.Flags().StringVarP(&chunkFile, "chunks", "c", "", "chunk file to select from (required)")
	cmd.Flags().BoolVar(&withStats, "stats", false, "include per-stage candidate counts")
	return cmd
}

func newTokenCommand(opts *options) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			a := opts.cfg.Auth
			auth.InitializeAuth(a.JwtSecret, a.Issuer, a.TokenTTL, true)

			token, err := auth.GenerateJWT(subject, auth.RoleAdmin)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	return cmd
}
