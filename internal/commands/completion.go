package commands

import (
	"io"

	"github.com/spf13/cobra"
)

// RegisterCompletion registers the completion command and completions for
// flags with a fixed set of values.
func RegisterCompletion(rootCmd *cobra.Command) {
	completionCmd := &cobra.Command{
		Use:   "completion",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for the portchart command.

To load completions in your current shell session:
  bash: source <(portchart completion bash)
  zsh:  source <(portchart completion zsh)
  fish: portchart completion fish | source

To load completions for all new shells:
  bash: portchart completion bash > /etc/bash_completion.d/portchart
  zsh:  portchart completion zsh > "${fpath[1]}/_portchart"
  fish: portchart completion fish > ~/.config/fish/completions/portchart.fish`,
	}

	shells := []struct {
		name string
		gen  func(w io.Writer) error
	}{
		{"bash", func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) }},
		{"zsh", rootCmd.GenZshCompletion},
		{"fish", func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) }},
		{"powershell", rootCmd.GenPowerShellCompletion},
	}
	for _, shell := range shells {
		gen := shell.gen
		completionCmd.AddCommand(&cobra.Command{
			Use:   shell.name,
			Short: "Generate " + shell.name + " completion script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return gen(cmd.OutOrStdout())
			},
		})
	}

	fixedValues := map[string][]string{
		"region":     {"us", "eu"},
		"log-level":  {"debug", "info", "warn", "error"},
		"log-format": {"json", "console"},
	}
	for flag, values := range fixedValues {
		values := values
		_ = rootCmd.RegisterFlagCompletionFunc(flag, func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		})
	}

	rootCmd.AddCommand(completionCmd)
}
