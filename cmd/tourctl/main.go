// Command tourctl is a terminal client for the TravelMate chat API.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

const defaultServer = "http://localhost:8000"

type options struct {
	server      string
	interactive bool
	verbose     bool
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "tourctl",
		Short:         "Chat with the TravelMate tourism assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "Base URL of the TravelMate server")

	askCmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask a single question, or start a session with --interactive",
		Long: `Sends a query to the chat endpoint and prints the reply.

Example:
  tourctl ask "What's the weather in Paris?"
  tourctl ask --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts.server)
			query := strings.Join(args, " ")
			if opts.interactive {
				return runInteractive(cmd.Context(), client, query, cmd.InOrStdin(), cmd.OutOrStdout(), opts.verbose)
			}
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("a query is required unless --interactive is set")
			}
			resp, err := client.Chat(cmd.Context(), query, nil)
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), resp, opts.verbose)
			return nil
		},
	}
	askCmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Keep asking questions and carry the conversation history")
	askCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Also print location, weather and attractions")

	streamCmd := &cobra.Command{
		Use:   "stream <query>",
		Short: "Ask a question and watch the reasoning steps as they happen",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts.server)
			out := cmd.OutOrStdout()
			resp, err := client.Stream(cmd.Context(), strings.Join(args, " "), nil, func(step types.ReasoningStep) {
				fmt.Fprintf(out, "[%s] %s\n", step.Step, step.Message)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			printReply(out, resp, false)
			return nil
		},
	}

	rootCmd.AddCommand(askCmd, streamCmd)
	return rootCmd
}

func runInteractive(ctx context.Context, client *apiClient, first string, in io.Reader, out io.Writer, verbose bool) error {
	var history []types.ConversationMessage
	ask := func(query string) error {
		resp, err := client.Chat(ctx, query, history)
		if err != nil {
			return err
		}
		history = resp.ConversationHistory
		printReply(out, resp, verbose)
		return nil
	}

	if strings.TrimSpace(first) != "" {
		if err := ask(first); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := ask(query); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func printReply(out io.Writer, resp *types.TourismResponse, verbose bool) {
	if verbose {
		fmt.Fprintf(out, "Location: %s\n", resp.Location)
		if resp.WeatherInfo != nil {
			fmt.Fprintf(out, "Weather: %s\n", *resp.WeatherInfo)
		}
		if len(resp.PlacesInfo) > 0 {
			fmt.Fprintf(out, "Attractions: %s\n", strings.Join(resp.PlacesInfo, ", "))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, resp.FinalResponse)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
