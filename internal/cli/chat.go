package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/harun/switchboard/pkg/checkpoint"
	"github.com/harun/switchboard/pkg/router"
	"github.com/spf13/cobra"
)

var (
	chatTenantID string
	chatUserID   string
	chatThreadID string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the agent graph. Each line of
input runs one turn; specialist handoffs are recorded so the conversation
resumes with the right agent. Pass --thread to pick up an existing thread.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatTenantID, "tenant", "cli-test", "tenant ID")
	chatCmd.Flags().StringVar(&chatUserID, "user", "cli-test", "user ID")
	chatCmd.Flags().StringVar(&chatThreadID, "thread", "", "resume an existing thread")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Keep interactive output clean.
	cfg.Logging.Console = false

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	if err := rt.seedCatalog(ctx); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	fmt.Println("Welcome to the interactive multi-agent shopping assistant.")
	fmt.Println("Type 'exit' to end the conversation.")
	fmt.Println()

	threadID := chatThreadID
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			break
		}

		result, err := rt.engine.Turn(ctx, router.TurnRequest{
			ThreadID:    threadID,
			TenantID:    chatTenantID,
			UserID:      chatUserID,
			Input:       input,
			Interactive: true,
		})
		if err != nil {
			fmt.Printf("error: %v\n\n", err)
			continue
		}

		threadID = result.ThreadID
		printReplies(result)
	}

	if threadID != "" {
		fmt.Printf("\nThread %s is saved; resume with --thread %s\n", threadID, threadID)
	}
	return nil
}

// printReplies prints the assistant messages of a turn
func printReplies(result *router.TurnResult) {
	replied := false
	for _, msg := range result.Delta {
		if msg.Role == checkpoint.RoleAssistant && msg.Content != "" {
			fmt.Printf("assistant: %s\n\n", msg.Content)
			replied = true
		}
	}
	if !replied {
		fmt.Println("(no reply)")
		fmt.Println()
	}
}
