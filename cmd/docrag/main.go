package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docrag/internal/chat"
	"docrag/internal/domain"
	"docrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath string
		sourcePath string
		topK       int
	)

	rootCmd := &cobra.Command{
		Use:           "docrag",
		Short:         "Chat with a reference document using retrieval-augmented generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docrag/config.yaml if not provided)")
	rootCmd.PersistentFlags().StringVar(&sourcePath, "source", "", "Document to index (overrides source.path)")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), configPath, sourcePath)
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Print the pages closest to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var k *int
			if cmd.Flags().Changed("k") {
				k = &topK
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), configPath, sourcePath, strings.Join(args, " "), k)
		},
	}
	searchCmd.Flags().IntVar(&topK, "k", 0, "Number of pages to return (default retrieval.top_k)")

	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and stream it to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd.OutOrStdout(), configPath, sourcePath, strings.Join(args, " "))
		},
	}

	rootCmd.AddCommand(chatCmd, searchCmd, askCmd)
	rootCmd.RunE = chatCmd.RunE

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func runChat(ctx context.Context, cfgPath, source string) error {
	// the TUI owns the terminal, so logs only go to the configured file
	a, err := newApp(ctx, cfgPath, source, io.Discard)
	if err != nil {
		return err
	}
	defer a.Close()
	assistant, err := a.newAssistant()
	if err != nil {
		return err
	}
	m := tui.New(assistant, a.retrieval, a.cfg.Retrieval.TopK, a.retrieval.Summary())
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	a.logger.Info("chat closed", "turns", len(m.History()))
	return nil
}

// runSearch prints the ranked pages for query. A nil k selects retrieval.top_k.
func runSearch(ctx context.Context, out io.Writer, cfgPath, source, query string, k *int) error {
	a, err := newApp(ctx, cfgPath, source, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	topK := a.cfg.Retrieval.TopK
	if k != nil {
		topK = *k
	}
	matches, err := a.retrieval.Matches(ctx, query, topK)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, domain.EmptyResultSentinel)
		return nil
	}
	for i, m := range matches {
		fmt.Fprintf(out, "%d. page %d (distance %.4f)\n%s\n\n", i+1, m.Ordinal, m.Distance, strings.TrimSpace(m.Text))
	}
	return nil
}

func runAsk(ctx context.Context, out io.Writer, cfgPath, source, question string) error {
	a, err := newApp(ctx, cfgPath, source, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	assistant, err := a.newAssistant()
	if err != nil {
		return err
	}
	stream, err := assistant.Ask(ctx, nil, question)
	if err != nil {
		return err
	}
	if _, err := chat.Drain(stream, func(frag string) { fmt.Fprint(out, frag) }); err != nil {
		return fmt.Errorf("stream answer: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}
