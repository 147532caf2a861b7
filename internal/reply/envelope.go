package reply

import (
	"fmt"
	"strings"
	"time"
)

// FormatInboundEnvelope renders the header line prepended to the user's
// message before it is handed to the agent. The header identifies the
// platform, the sender, and the conversation surface so the agent can tell
// group chatter from direct requests.
func FormatInboundEnvelope(channel, from string, chatType ChatType, senderName, senderID, body string, ts time.Time) string {
	sender := senderName
	if sender == "" {
		sender = senderID
	} else if senderID != "" && senderID != sender {
		sender = fmt.Sprintf("%s (%s)", senderName, senderID)
	}

	surface := "DM"
	if chatType == ChatTypeGroup {
		surface = "group"
	}

	header := fmt.Sprintf("[%s %s] %s | from %s | %s",
		channel, surface, from, sender, ts.UTC().Format(time.RFC3339))
	return header + "\n" + body
}

// Preview collapses whitespace and truncates to maxLen runes. Used for
// log lines and system event summaries.
func Preview(s string, maxLen int) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	runes := []rune(collapsed)
	if len(runes) <= maxLen {
		return collapsed
	}
	return string(runes[:maxLen])
}
