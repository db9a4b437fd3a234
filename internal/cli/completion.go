package cli

import (
	"github.com/spf13/cobra"
)

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script so the shell can complete cidev
subcommands and flags, for example "cidev lock strip --pa<TAB>" or
"cidev report test --format <TAB>".

Load it for the current session:

  bash:        source <(cidev completion bash)
  zsh:         source <(cidev completion zsh)
  fish:        cidev completion fish | source
  powershell:  cidev completion powershell | Out-String | Invoke-Expression

To keep it, write the script where the shell picks it up, for example:

  cidev completion bash > /etc/bash_completion.d/cidev
  cidev completion zsh > "${fpath[1]}/_cidev"
  cidev completion fish > ~/.config/fish/completions/cidev.fish

CI runners do not need completions; this is for working on the release
pipeline locally.`,
		// Completion needs no config or logger.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              positional(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			w := cmd.OutOrStdout()

			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			default:
				return root.GenBashCompletionV2(w, true)
			}
		},
	}

	return cmd
}
