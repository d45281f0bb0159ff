package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/tejjnayak/rewind/internal/app"
	"github.com/tejjnayak/rewind/internal/config"
	"github.com/tejjnayak/rewind/internal/log"
	"github.com/tejjnayak/rewind/internal/version"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().StringP("model", "m", "", "Override the model for this run")

	rootCmd.Flags().BoolP("help", "h", false, "Help")

	// Non-interactive single-prompt flags
	rootCmd.Flags().StringP("prompt", "p", "", "Run a single prompt and exit (non-interactive mode)")
	rootCmd.Flags().BoolP("quiet", "q", false, "Only print the reply when using --prompt")

	rootCmd.AddCommand(runCmd)
}

var rootCmd = &cobra.Command{
	Use:   "rewind",
	Short: "Versioned AI chat with token accounting",
	Long: `Rewind is a terminal chat client that records every exchange as an
immutable conversation version. Any earlier version can be restored and the
conversation continued from there, with token usage and cost tracked across
the whole session.`,
	Example: `
	# Chat interactively
	rewind

	# Chat with debug logging
	rewind -d

	# Use a different model for this run
	rewind -m gpt-4o

	# Run a single non-interactive prompt
	rewind -p "Explain the use of context in Go"

	# Run a single prompt and print only the reply
	rewind -p "Generate a haiku about version control" -q
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If a prompt is provided via flag, run non-interactive and exit
		prompt, _ := cmd.Flags().GetString("prompt")
		if prompt != "" {
			return handlePromptFlag(cmd, prompt)
		}

		app, err := setupApp(cmd)
		if err != nil {
			return err
		}
		defer app.Shutdown()

		return newRepl(app, os.Stdin, os.Stdout).run(cmd.Context())
	},
}

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// setupApp handles the common setup logic for both interactive and
// non-interactive modes.
func setupApp(cmd *cobra.Command) (*app.App, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	ctx := cmd.Context()

	cwd, err := ResolveCwd(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cwd, debug)
	if err != nil {
		return nil, err
	}

	// Apply runtime model override if provided
	if modelFlag, _ := cmd.Flags().GetString("model"); modelFlag != "" {
		cfg.Model = modelFlag
	}

	if err := createDataDir(cfg.DataDir); err != nil {
		return nil, err
	}
	log.Setup(cfg.LogFile(), cfg.Debug)

	appInstance, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create app instance", "error", err)
		return nil, err
	}

	return appInstance, nil
}

func MaybePrependStdin(prompt string) (string, error) {
	if term.IsTerminal(os.Stdin.Fd()) {
		return prompt, nil
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return prompt, err
	}
	if fi.Mode()&os.ModeNamedPipe == 0 {
		return prompt, nil
	}
	bts, err := io.ReadAll(os.Stdin)
	if err != nil {
		return prompt, err
	}
	return string(bts) + "\n\n" + prompt, nil
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}

func createDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %q %w", dir, err)
	}
	return nil
}

// handlePromptFlag processes the --prompt flag for non-interactive execution
func handlePromptFlag(cmd *cobra.Command, prompt string) error {
	quiet, _ := cmd.Flags().GetBool("quiet")

	app, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	// Handle stdin input if available
	finalPrompt, err := MaybePrependStdin(prompt)
	if err != nil {
		slog.Error("Failed to read from stdin", "error", err)
		return err
	}

	if finalPrompt == "" {
		return fmt.Errorf("no prompt provided")
	}

	return app.RunNonInteractive(cmd.Context(), finalPrompt, quiet)
}
