////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/messaging"
)

// consoleModel renders EventModel callbacks as terminal lines.
type consoleModel struct{}

func (consoleModel) ConversationUpdated(
	conversationID messaging.ConversationID, messages []messaging.Message,
	hasMore bool) {

	fmt.Printf("--- %s (%d messages", conversationID, len(messages))
	if hasMore {
		fmt.Printf(", older available")
	}
	fmt.Printf(") ---\n")

	for i := range messages {
		msg := &messages[i]
		marker := ""
		switch msg.Status {
		case messaging.Sending:
			marker = " [sending]"
		case messaging.Failed:
			marker = " [FAILED, /retry " + msg.TempID + "]"
		}
		pin := ""
		if msg.Pinned {
			pin = "📌 "
		}
		fmt.Printf("%s[%d] %s%s: %s%s\n", pin, msg.ID,
			msg.SenderName, marker, msg.Content,
			formatCounts(msg.ReactionCounts))
	}
}

func (consoleModel) MessageStatusUpdated(
	tempID string, msg messaging.Message, status messaging.Status) {
	jww.INFO.Printf("Message %s is now %s (server ID %d)",
		tempID, status, msg.ID)
}

func (consoleModel) TypingUpdated(
	_ messaging.ConversationID, typers []messaging.TypingEntry) {
	if len(typers) == 0 {
		return
	}
	names := make([]string, 0, len(typers))
	for _, typer := range typers {
		names = append(names, typer.DisplayName)
	}
	fmt.Printf("... %s typing\n", strings.Join(names, ", "))
}

func (consoleModel) ReactionsUpdated(
	messageID int64, counts map[string]int) {
	fmt.Printf("reactions on %d:%s\n", messageID, formatCounts(counts))
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	var sb strings.Builder
	for emj, count := range counts {
		fmt.Fprintf(&sb, " %s%d", emj, count)
	}
	return sb.String()
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open a conversation and chat interactively",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		stopProfiling := startProfiling()
		defer stopProfiling()

		manager, closer := buildManager(consoleModel{})
		defer closer()

		var conversationID messaging.ConversationID
		if eventID := viper.GetInt64("event"); eventID != 0 {
			conversationID = messaging.NewEventConversation(eventID)
		} else if otherID := viper.GetInt64("with"); otherID != 0 {
			conversationID = messaging.NewDirectConversation(otherID)
		} else {
			jww.FATAL.Panicf("Either the event or the with flag is required")
		}

		manager.SetConversation(conversationID)
		fmt.Printf("Connected to %s. Type a message, or /help.\n",
			conversationID)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" {
				return
			}
			runChatLine(manager, line)
		}
	},
}

// runChatLine executes one interactive input line: a /command or a plain
// message send.
func runChatLine(manager *messaging.Manager, line string) {
	if !strings.HasPrefix(line, "/") {
		manager.StartTyping()
		if _, err := manager.Send(line, nil, 0); err != nil {
			fmt.Printf("send failed: %s\n", err)
		}
		manager.StopTyping()
		return
	}

	command, arg, _ := strings.Cut(line, " ")
	switch command {
	case "/help":
		fmt.Print("/more — load older messages\n" +
			"/reply <id> <text> — reply to a message\n" +
			"/react <id> <emoji> — toggle a reaction\n" +
			"/pin <id>, /unpin <id> — pin or unpin\n" +
			"/del <id> — delete a message\n" +
			"/retry <tempID>, /cancel <tempID> — manage failed sends\n" +
			"/find <text> — search this conversation\n" +
			"/quit — exit\n")

	case "/more":
		manager.LoadMore()

	case "/reply":
		idStr, text, _ := strings.Cut(arg, " ")
		parentID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || text == "" {
			fmt.Println("usage: /reply <id> <text>")
			return
		}
		if _, err = manager.Send(text, nil, parentID); err != nil {
			fmt.Printf("reply failed: %s\n", err)
		}

	case "/react":
		idStr, emj, _ := strings.Cut(arg, " ")
		messageID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || emj == "" {
			fmt.Println("usage: /react <id> <emoji>")
			return
		}
		if err = manager.Reactions(messageID).Toggle(emj); err != nil {
			fmt.Printf("reaction failed: %s\n", err)
		}

	case "/pin", "/unpin":
		messageID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Printf("usage: %s <id>\n", command)
			return
		}
		if err = manager.PinMessage(
			messageID, command == "/pin"); err != nil {
			fmt.Printf("pin failed: %s\n", err)
		}

	case "/del":
		messageID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Println("usage: /del <id>")
			return
		}
		if err = manager.DeleteMessage(messageID); err != nil {
			fmt.Printf("delete failed: %s\n", err)
		}

	case "/retry":
		manager.Retry(arg)

	case "/cancel":
		manager.Cancel(arg)

	case "/find":
		matches, err := manager.SearchConversation(arg)
		if err != nil {
			fmt.Printf("search failed: %s\n", err)
			return
		}
		for i := range matches {
			fmt.Printf("[%d] %s: %s\n", matches[i].ID,
				matches[i].SenderName, matches[i].Content)
		}

	default:
		fmt.Printf("unknown command %s (try /help)\n", command)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Int64P("event", "e", 0,
		"Open the conversation attached to this event ID")
	viper.BindPFlag("event", chatCmd.Flags().Lookup("event"))

	chatCmd.Flags().Int64P("with", "w", 0,
		"Open the direct conversation with this user ID")
	viper.BindPFlag("with", chatCmd.Flags().Lookup("with"))
}
