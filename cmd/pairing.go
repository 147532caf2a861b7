package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/heyclaw/internal/channels/heychat"
	"github.com/nextlevelbuilder/heyclaw/internal/config"
	"github.com/nextlevelbuilder/heyclaw/internal/store"
)

const pairingApprovedMessage = "Pairing approved. You can chat with the bot now."

func pairingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairing",
		Short: "Manage DM pairing requests",
	}
	cmd.AddCommand(pairingListCmd())
	cmd.AddCommand(pairingApproveCmd())
	return cmd
}

func openPairingStore() (*store.SQLiteStore, *config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	s, err := store.OpenSQLite(config.ExpandHome(cfg.Store.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return s, cfg, nil
}

func pairingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending pairing requests",
		Run: func(cmd *cobra.Command, args []string) {
			s, _, err := openPairingStore()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer s.Close()

			pending, err := s.ListPending()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if len(pending) == 0 {
				fmt.Println("No pending pairing requests.")
				return
			}
			for _, req := range pending {
				fmt.Printf("%s  sender=%s  chat=%s  requested=%s\n",
					req.Code, req.SenderID, req.ChatID, req.CreatedAt.Format(time.RFC3339))
			}
		},
	}
}

func pairingApproveCmd() *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "approve <code>",
		Short: "Approve a pairing request and notify the sender",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			s, cfg, err := openPairingStore()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer s.Close()

			req, err := s.Approve(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("Approved pairing for sender %s.\n", req.SenderID)

			account := cfg.ResolveHeychatAccount(accountID)
			if account.Token == "" {
				fmt.Println("No heychat token configured; sender was not notified.")
				return
			}

			roomID, channelID := heychat.NewTopology().ResolveTarget(req.ChatID)
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_, err = heychat.NewClient(account.Token).SendMessage(ctx, heychat.SendOptions{
				RoomID:    roomID,
				ChannelID: channelID,
				Text:      pairingApprovedMessage,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "approved, but notifying the sender failed: %v\n", err)
				return
			}
			fmt.Println("Sender notified.")
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "bot account to notify from (default account if empty)")
	return cmd
}
