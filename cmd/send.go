package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/heyclaw/internal/channels/heychat"
	"github.com/nextlevelbuilder/heyclaw/internal/config"
)

func sendCmd() *cobra.Command {
	var (
		accountID string
		msgType   string
		replyTo   string
	)

	cmd := &cobra.Command{
		Use:   "send <room_id>:<channel_id> <message>",
		Short: "Send a one-off message to a Heychat channel",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			account := cfg.ResolveHeychatAccount(accountID)
			if account.Token == "" {
				fmt.Fprintln(os.Stderr, "heychat token not configured")
				os.Exit(1)
			}

			wireType, ok := heychat.MsgTypeFromName(msgType)
			if !ok {
				fmt.Fprintf(os.Stderr, "unknown msg type %q\n", msgType)
				os.Exit(1)
			}

			roomID, channelID := heychat.NewTopology().ResolveTarget(args[0])
			text := strings.Join(args[1:], " ")

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			res, err := heychat.NewClient(account.Token).SendMessage(ctx, heychat.SendOptions{
				RoomID:    roomID,
				ChannelID: channelID,
				Text:      text,
				ReplyID:   replyTo,
				MsgType:   wireType,
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("Sent (msg_id=%s ack=%s)\n", res.MsgID, res.AckID)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "bot account to send from (default account if empty)")
	cmd.Flags().StringVar(&msgType, "type", "at_markdown", "message type: text, image, markdown, at_markdown")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "message id to reply to")
	return cmd
}
