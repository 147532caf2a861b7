package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/heyclaw/internal/channels/heychat"
	"github.com/nextlevelbuilder/heyclaw/internal/config"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configured Heychat accounts",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			for _, id := range cfg.ListHeychatAccountIDs() {
				account := cfg.ResolveHeychatAccount(id)
				probe := heychat.Probe(account.Token)

				state := "ok"
				switch {
				case !account.Enabled:
					state = "disabled"
				case !account.Configured:
					state = "no token"
				case !probe.OK:
					state = "token invalid: " + probe.Error
				}

				fmt.Printf("%-12s %-20s token=%-6s dm=%-9s group=%-9s %s\n",
					account.AccountID, account.Name, account.TokenSource,
					account.Config.DMPolicy, account.Config.GroupPolicy, state)
			}
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config with secrets masked",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			out, _ := json.MarshalIndent(cfg.MaskedCopy(), "", "  ")
			fmt.Println(string(out))
		},
	})
	return cmd
}
