package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ashureev/fitcoach/internal/coach"
	"github.com/ashureev/fitcoach/internal/config"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	greeting bool
	plain    bool
	verbose  bool
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the coach on stdin",
		Long: "Starts an interactive coaching session. Numbered quick replies can be " +
			"picked by typing their number. Type quit or exit to leave.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("greeting") {
				if cfg, err := config.Load(); err == nil {
					opts.greeting = cfg.Greeting
				}
			}
			return runChat(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.greeting, "greeting", true, "open with the greeting step (defaults to COACH_GREETING)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "never use ANSI styling")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log turn outcomes to stderr")
	return cmd
}

func runChat(in io.Reader, out, errOut io.Writer, opts *chatOptions) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	interactive := isTerminal(out)
	sink := &terminalSink{out: out, ansi: interactive && !opts.plain}
	ctrl := coach.New(sink,
		coach.WithGreeting(opts.greeting),
		coach.WithChooser(sink),
		coach.WithLogger(logger),
	)
	ctrl.Start()

	scanner := bufio.NewScanner(in)
	for {
		if len(sink.choices) > 0 {
			fmt.Fprintln(out, "       "+renderChoices(sink.choices))
		}
		if interactive {
			fmt.Fprint(out, "you> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "quit", "exit":
			return nil
		}
		ctrl.SubmitUtterance(sink.resolve(line))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
