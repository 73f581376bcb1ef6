package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/contextselect/internal/ai"
	"github.com/seanblong/contextselect/internal/analyzer"
	"github.com/seanblong/contextselect/internal/cache"
	"github.com/seanblong/contextselect/internal/config"
	"github.com/spf13/cobra"
)

type options struct {
	cfg config.Specification
}

// NewRootCommand builds the ctxselect command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ctxselect",
		Short: "Select the document chunks that answer a question",
		Long: `ctxselect analyzes questions and selects the chunks of a pre-chunked
document that best answer them, within a token budget.

Example usage:
  ctxselect analyze -q "금연구역 지정 절차가 어떻게 되나요?"
  ctxselect select -q "금연구역 지정 절차" --chunks chunks.json
  ctxselect token --subject ops`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve("", cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			level, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()
			opts.cfg = cfg
			return nil
		},
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newAnalyzeCommand(opts),
		newSelectCommand(opts),
		newTokenCommand(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newAnalyzer wires the configured AI client and cache into an analyzer. The
// returned func releases the cache.
func newAnalyzer(ctx context.Context, cfg config.Specification) (*analyzer.Analyzer, func(), error) {
	cc, err := cfg.AIClientConfig()
	if err != nil {
		return nil, nil, err
	}

	var client ai.Client
	if cc.Provider != ai.ProviderStub {
		client, err = ai.NewClient(ctx, cc)
		if err != nil {
			return nil, nil, fmt.Errorf("create AI client: %w", err)
		}
	}

	closer := func() {}
	var ac analyzer.Cache
	if cfg.AnalysisCache != "" {
		c, err := cache.Open(cfg.AnalysisCache)
		if err != nil {
			return nil, nil, err
		}
		ac = c
		closer = func() {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close analysis cache")
			}
		}
	}
	return analyzer.New(client, ac), closer, nil
}

func printJSON(w io.Writer, v any) error {
	enc := newEncoder(w)
	return enc.Encode(v)
}
