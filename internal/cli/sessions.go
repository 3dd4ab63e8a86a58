package cli

import (
	"errors"
	"fmt"

	"github.com/harun/switchboard/pkg/checkpoint"
	"github.com/harun/switchboard/pkg/directory"
	"github.com/spf13/cobra"
)

var (
	sessionsTenantID string
	sessionsUserID   string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage session records",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List session records for a user",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session and its latest checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session record",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsTenantID, "tenant", "cli-test", "tenant ID")
	sessionsCmd.PersistentFlags().StringVar(&sessionsUserID, "user", "cli-test", "user ID")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// openStores opens just the storage layers, without provider wiring.
// Provider validation is skipped; no API key is needed to inspect state.
func openStores() (*directory.Store, *checkpoint.Store, func(), error) {
	cfg, err := loadConfigUnvalidated()
	if err != nil {
		return nil, nil, nil, err
	}

	dirStore, err := directory.Open(cfg.Router.DirectoryPath, nopLogger())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open session directory: %w", err)
	}

	cpStore, err := checkpoint.Open(cfg.Router.CheckpointPath, nopLogger())
	if err != nil {
		dirStore.Close()
		return nil, nil, nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	cleanup := func() {
		cpStore.Close()
		dirStore.Close()
	}
	return dirStore, cpStore, cleanup, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	dirStore, _, cleanup, err := openStores()
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := dirStore.ListByUser(cmd.Context(), sessionsTenantID, sessionsUserID)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Printf("%-40s %-16s %s\n", "SESSION", "ACTIVE AGENT", "UPDATED")
	for _, rec := range records {
		fmt.Printf("%-40s %-16s %s\n",
			rec.SessionID, rec.ActiveAgent, rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	dirStore, cpStore, cleanup, err := openStores()
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := dirStore.Lookup(cmd.Context(), sessionsTenantID, sessionsUserID, sessionID)
	if errors.Is(err, directory.ErrNotFound) {
		return fmt.Errorf("session %s not found", sessionID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Session:      %s\n", rec.SessionID)
	fmt.Printf("Tenant/User:  %s / %s\n", rec.TenantID, rec.UserID)
	fmt.Printf("Active agent: %s\n", rec.ActiveAgent)
	fmt.Printf("Updated:      %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))

	cp, err := cpStore.LoadLatest(cmd.Context(), sessionID)
	if errors.Is(err, checkpoint.ErrEmpty) {
		fmt.Println("No checkpoints yet.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Turns:        %d\n", cp.TurnSeq)
	fmt.Printf("Parked at:    %s\n", cp.Node)
	fmt.Printf("Messages:     %d\n", len(cp.Messages))
	for _, msg := range cp.Messages {
		content := msg.Content
		if content == "" && len(msg.ToolCalls) > 0 {
			content = fmt.Sprintf("(%d tool call(s))", len(msg.ToolCalls))
		}
		fmt.Printf("  [%s] %s\n", msg.Role, content)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	dirStore, _, cleanup, err := openStores()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := dirStore.Delete(cmd.Context(), sessionsTenantID, sessionsUserID, sessionID); err != nil {
		return err
	}
	fmt.Printf("Session %s deleted.\n", sessionID)
	return nil
}
