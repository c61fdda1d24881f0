// Package cli defines the dc command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// ReviewRequest carries the resolved settings for one review run.
type ReviewRequest struct {
	// DiffFile is a path to a pre-captured unified diff; "-" reads stdin.
	// Empty means the diff is computed from the repository.
	DiffFile string

	RepoDir            string
	BaseRef            string
	TargetRef          string
	IncludeUncommitted bool

	// Local prints the review to the terminal instead of posting it.
	Local    bool
	PRNumber int

	// Overrides; zero values mean "use config".
	ChunkSize    int
	Threshold    string
	Model        string
	Temperature  *float64
	TopP         *float64
	Instructions string
}

// ReviewRunner executes a review run end to end.
type ReviewRunner interface {
	Review(ctx context.Context, req ReviewRequest) error
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Defaults holds config-derived flag defaults.
type Defaults struct {
	BaseRef      string
	TargetRef    string
	Threshold    string
	Instructions string
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Runner   ReviewRunner
	Args     Arguments
	Defaults Defaults
	Version  string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "dc",
		Short: "LLM-assisted diff review CLI",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(reviewCommand(deps.Runner, deps.Defaults))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func reviewCommand(runner ReviewRunner, defaults Defaults) *cobra.Command {
	var diffFile string
	var repoDir string
	var baseRef string
	var targetRef string
	var includeUncommitted bool
	var local bool
	var prNumber int
	var chunkSize int
	var threshold string
	var model string
	var temperature float64
	var topP float64
	var instructions string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a diff and report findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if diffFile == "" && repoDir == "" {
				return fmt.Errorf("either --diff-file or --repo is required")
			}
			if !local && prNumber <= 0 {
				return fmt.Errorf("--pr is required unless --local is set")
			}

			req := ReviewRequest{
				DiffFile:           diffFile,
				RepoDir:            repoDir,
				BaseRef:            baseRef,
				TargetRef:          targetRef,
				IncludeUncommitted: includeUncommitted,
				Local:              local,
				PRNumber:           prNumber,
				ChunkSize:          chunkSize,
				Threshold:          threshold,
				Model:              model,
				Instructions:       instructions,
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}
			if cmd.Flags().Changed("top-p") {
				req.TopP = &topP
			}

			return runner.Review(cmd.Context(), req)
		},
	}

	cmd.Flags().StringVar(&diffFile, "diff-file", "", "Path to a unified diff to review ('-' for stdin)")
	cmd.Flags().StringVar(&repoDir, "repo", "", "Path to a git repository to diff")
	cmd.Flags().StringVar(&baseRef, "base", defaults.BaseRef, "Base ref for repository diffs")
	cmd.Flags().StringVar(&targetRef, "target", defaults.TargetRef, "Target ref for repository diffs")
	cmd.Flags().BoolVar(&includeUncommitted, "uncommitted", false, "Include uncommitted changes in repository diffs")
	cmd.Flags().BoolVar(&local, "local", false, "Print the review locally instead of posting to GitHub")
	cmd.Flags().IntVar(&prNumber, "pr", 0, "Pull request number to post the review to")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Maximum chunk size in characters (0 uses config)")
	cmd.Flags().StringVar(&threshold, "review-level", defaults.Threshold, "Minimum severity to report: trivial, important or critical")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (overrides config)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature (overrides config)")
	cmd.Flags().Float64Var(&topP, "top-p", 0, "Nucleus sampling probability (overrides config)")
	cmd.Flags().StringVar(&instructions, "instructions", defaults.Instructions, "Custom review instructions")

	return cmd
}
