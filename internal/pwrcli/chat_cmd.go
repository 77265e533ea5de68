package pwrcli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/ol-power-client/internal/powerapi"
	"github.com/oremus-labs/ol-power-client/internal/stream"
)

var chatCmd = protected(&cobra.Command{
	Use:   "chat <prompt>",
	Short: "Ask the AI assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args, " ")
		noStream, _ := cmd.Flags().GetBool("no-stream")
		if noStream {
			answer, err := client.Chat(cmd.Context(), prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		}
		return streamAnswer(cmd, client, prompt)
	},
})

func streamAnswer(cmd *cobra.Command, client *powerapi.Client, prompt string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	sess, err := client.StreamChat(ctx, prompt, stream.Handlers{
		OnChunk: func(chunk string) {
			fmt.Fprint(out, chunk)
		},
	})
	if err != nil {
		return err
	}
	if err := sess.Wait(context.Background()); err != nil {
		fmt.Fprintln(out)
		return err
	}
	fmt.Fprintln(out)
	if sess.State() == stream.StateCancelled {
		warnColor.Fprintln(cmd.ErrOrStderr(), "(cancelled)")
	}
	return nil
}

var chatSendCmd = protected(&cobra.Command{
	Use:   "send <message>",
	Short: "Ask the rule-based service assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		userID, _ := cmd.Flags().GetInt64("user-id")
		res, err := client.SendMessage(cmd.Context(), powerapi.ChatRequest{
			Message:   strings.Join(args, " "),
			SessionID: sessionID,
			UserID:    userID,
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
			fmt.Fprintf(tw, "%s\n\n", res.Response)
			fmt.Fprintf(tw, "Session\t%s\n", res.SessionID)
			fmt.Fprintf(tw, "Service\t%s\n", orDash(res.ServiceType))
			fmt.Fprintf(tw, "Needs more info\t%s\n", boolMark(res.NeedMoreInfo))
		})
	},
})

var chatHistoryCmd = protected(&cobra.Command{
	Use:   "history <session-id>",
	Short: "Show the exchanges of a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		records, err := client.ChatHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), records, func(tw *tabwriter.Writer) {
			fmt.Fprintf(tw, "Time\tQuestion\tAnswer\n")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", orDash(r.CreatedAt), r.UserMessage, r.BotResponse)
			}
		})
	},
})

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the chat service answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		if err := client.ChatHealth(cmd.Context()); err != nil {
			return err
		}
		successColor.Fprintln(cmd.OutOrStdout(), "Chat service is healthy.")
		return nil
	},
}

func init() {
	chatCmd.Flags().Bool("no-stream", false, "Wait for the whole answer instead of streaming")
	chatSendCmd.Flags().String("session", "", "Chat session to continue")
	chatSendCmd.Flags().Int64("user-id", 0, "User the exchange is recorded for")
	chatCmd.AddCommand(chatSendCmd)
	chatCmd.AddCommand(chatHistoryCmd)
}
