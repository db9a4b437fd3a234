package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cidev/internal/logging"
	"github.com/hupe1980/cidev/internal/output"
	"github.com/hupe1980/cidev/internal/testreport"
)

type reportOptions struct {
	format string
	input  string
	output string
	render bool
	width  int
}

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build test reports and PR comments from cargo test output",
	}

	cmd.AddCommand(newReportTestCommand(), newReportCommentCommand())

	return cmd
}

func registerRenderFlags(cmd *cobra.Command, opts *reportOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	f.BoolVar(&opts.render, "render", false, "render Markdown for the terminal")
	f.IntVar(&opts.width, "width", 100, "wrap width for --render (0 disables wrapping)")
}

func newReportTestCommand() *cobra.Command {
	opts := &reportOptions{}

	var comment bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Turn a cargo test JSON event stream into a report",
		Long: `Test reads the output of

  cargo test -- -Z unstable-options --format json

from --input or standard input and writes a report in json, yaml,
markdown or html. Lines that are not test events are ignored.`,
		Args: positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatter, err := testreport.NewFormatter(opts.format)
			if err != nil {
				return usageError(err)
			}

			if opts.render && !isMarkdown(opts.format) {
				return usageError(errors.New("--render requires --format markdown"))
			}

			logger := logging.FromContext(cmd.Context())

			rep, err := parseReport(cmd, opts.input)
			if err != nil {
				return err
			}

			if len(rep.Cases) == 0 {
				logger.Warn("no test cases found")
				return nil
			}

			var buf bytes.Buffer
			if err := formatter.Format(&buf, rep); err != nil {
				return fmt.Errorf("formatting report: %w", err)
			}

			if err := emit(cmd, buf.String(), opts, logger); err != nil {
				return err
			}

			if comment {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), testreport.Comment(rep))
				return err
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "json", "report format: json, yaml, markdown, html")
	f.StringVarP(&opts.input, "input", "i", "", "cargo test output (default: stdin)")
	f.BoolVar(&comment, "comment", false, "also print the PR comment for the report")
	registerRenderFlags(cmd, opts)

	return cmd
}

func newReportCommentCommand() *cobra.Command {
	opts := &reportOptions{}

	var (
		reports []string
		post    bool
		number  int
	)

	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Merge JSON reports into a pull request comment",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(reports) == 0 {
				return usageError(errors.New("at least one --report is required"))
			}

			if post && number <= 0 {
				return usageError(errors.New("--post requires --pr"))
			}

			ctx := cmd.Context()
			logger := logging.FromContext(ctx)

			loaded := testreport.LoadAll(reports, logger)
			if len(loaded) == 0 {
				logger.Warn("no valid report files found")
				return nil
			}

			body := testreport.Comment(testreport.Merge(loaded...))

			if err := emit(cmd, body, opts, logger); err != nil {
				return err
			}

			if !post {
				return nil
			}

			gh, err := newGitHubClient(ctx, newGitClient(ctx))
			if err != nil {
				return err
			}

			if err := gh.CreateIssueComment(ctx, number, body); err != nil {
				return fmt.Errorf("posting comment: %w", err)
			}

			logger.Info("posted test report comment", slog.Int("pr", number))

			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&reports, "report", nil, "JSON report file (repeatable)")
	f.BoolVar(&post, "post", false, "post the comment to the pull request")
	f.IntVar(&number, "pr", 0, "pull request number for --post")
	registerRenderFlags(cmd, opts)

	return cmd
}

func isMarkdown(format string) bool {
	return format == "markdown" || format == "md"
}

func parseReport(cmd *cobra.Command, input string) (*testreport.Report, error) {
	var r io.Reader = cmd.InOrStdin()

	if input != "" {
		f, err := os.Open(input) //nolint:gosec // path is user-provided by design
		if err != nil {
			return nil, fmt.Errorf("opening test output: %w", err)
		}
		defer f.Close()

		r = f
	}

	return testreport.Parse(r)
}

// emit writes content to the output file, or to stdout, rendering Markdown
// when requested. Files always receive the raw content.
func emit(cmd *cobra.Command, content string, opts *reportOptions, logger *slog.Logger) error {
	if opts.output != "" {
		w := output.NewFileWriter(opts.output, output.WithLogger(logger))
		if err := w.Write([]byte(content)); err != nil {
			return err
		}

		logger.Info("report written", slog.String("path", opts.output))

		return nil
	}

	if opts.render {
		rendered, err := testreport.Render(content, opts.width)
		if err != nil {
			return fmt.Errorf("rendering markdown: %w", err)
		}

		content = rendered
	}

	return output.NewStdoutWriter(cmd.OutOrStdout()).Write([]byte(content))
}
