package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver/responses"
)

func newChatCmd() *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the mentor",
	}

	sendCmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message to the mentor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, "/api/chat/send", "", args[0])
		},
	}
	addSendFlags(sendCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the mentor conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, "/api/chat/history")
		},
	}

	chatCmd.AddCommand(sendCmd, historyCmd)
	return chatCmd
}

func newClassroomCmd() *cobra.Command {
	classroomCmd := &cobra.Command{
		Use:   "classroom",
		Short: "Talk to the technical, coding and aptitude assistants",
	}

	sendCmd := &cobra.Command{
		Use:   "send <assistant> <message>",
		Short: "Send a message to a classroom assistant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, "/api/classroom/send", args[0], args[1])
		},
	}
	addSendFlags(sendCmd)

	historyCmd := &cobra.Command{
		Use:   "history <assistant>",
		Short: "Print a classroom conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, "/api/classroom/"+args[0])
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <assistant>",
		Short: "Delete a classroom conversation",
		Args:  cobra.ExactArgs(1),
		RunE:  runClear,
	}

	classroomCmd.AddCommand(sendCmd, historyCmd, clearCmd)
	return classroomCmd
}

func addSendFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Attach a local file")
	cmd.Flags().String("history", "", "Prior turns as a JSON array of {role, content}")
}

func runSend(cmd *cobra.Command, path, assistantType, message string) error {
	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	history, _ := cmd.Flags().GetString("history")
	if history != "" && !json.Valid([]byte(history)) {
		return fmt.Errorf("--history is not valid JSON")
	}

	result, err := client.send(path, sendRequest{
		AssistantType: assistantType,
		Message:       message,
		History:       history,
		File:          file,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Response)
	return nil
}

func runHistory(cmd *cobra.Command, path string) error {
	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	history, err := client.history(path)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), history)
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	result, err := client.clear("/api/classroom/" + args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	return nil
}

func printHistory(out io.Writer, history *responses.HistoryResponse) {
	if len(history.Messages) == 0 {
		fmt.Fprintln(out, "No messages yet.")
		return
	}
	fmt.Fprintf(out, "Conversation %s\n", history.ConversationID)
	for _, turn := range history.Messages {
		line := fmt.Sprintf("[%s] %s: %s", turn.Timestamp.Format("2006-01-02 15:04"), turn.Role, turn.Content)
		if turn.Attachment != nil {
			line += fmt.Sprintf(" (attachment: %s)", turn.Attachment.Filename)
		}
		fmt.Fprintln(out, line)
	}
}
