package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/policyhub/askhr/internal/app"
	"github.com/policyhub/askhr/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single HR policy question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "), os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

// runAsk runs one turn against a fresh conversation, streaming the
// answer to out as tokens arrive.
func runAsk(ctx context.Context, question string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	conv := a.Assistant.NewConversation()

	var streamed bool
	answer, err := conv.HandleTurn(ctx, question,
		func(_ context.Context, token string) error {
			streamed = true
			_, werr := fmt.Fprint(out, token)
			return werr
		})
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	// If the model never reached the answer marker nothing streamed;
	// fall back to the complete text, attribution included.
	if !streamed {
		fmt.Fprintln(out, answer.Text)
		return nil
	}

	fmt.Fprintln(out)
	if cfg.ShowSources && len(answer.Sources) > 0 {
		fmt.Fprintln(out, "---")
		for _, src := range answer.Sources {
			fmt.Fprintf(out, "Source: %s\n", src.Text)
		}
	}
	return nil
}
