package testreport

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// errorPreviewLen caps the error text quoted in a pull request comment.
const errorPreviewLen = 200

// Comment renders the pull request comment for a report.
func Comment(r *Report) string {
	s := r.Summary

	var b strings.Builder

	b.WriteString("## 📊 Test Results\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Total Tests | %d |\n", s.Total)
	fmt.Fprintf(&b, "| ✅ Passed | %d |\n", s.Passed)
	fmt.Fprintf(&b, "| ❌ Failed | %d |\n", s.Failed)
	fmt.Fprintf(&b, "| ⏭ Ignored | %d |\n", s.Ignored)
	fmt.Fprintf(&b, "| ⏱ Timeout | %d |\n", s.Timeout)
	fmt.Fprintf(&b, "| Success Rate | %.2f%% |\n", s.SuccessRate)
	fmt.Fprintf(&b, "| Duration | %.2fs |\n", s.DurationSecs)

	failed := r.FailedCases()
	if len(failed) > 0 {
		b.WriteString("\n### ❌ Failed Tests\n\n")

		for _, c := range failed {
			fmt.Fprintf(&b, "- `%s`\n", c.Name)

			if c.ErrorMessage != "" {
				fmt.Fprintf(&b, "  ```\n%s\n```\n", preview(c.ErrorMessage))
			}
		}
	}

	return b.String()
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= errorPreviewLen {
		return s
	}

	return string(r[:errorPreviewLen]) + "..."
}

// Render formats Markdown for a terminal. A width of zero disables wrapping.
func Render(markdown string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}

	return renderer.Render(markdown)
}
