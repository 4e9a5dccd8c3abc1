package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/reminderbot/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's upcoming reminders",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	cmd.Flags().String("user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	rootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, store, err := loadCommon(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	userID, _ := cmd.Flags().GetString("user")
	now := time.Now()

	rems, err := newReminders(cfg, store).ListActive(ctx, userID, now)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rems) == 0 {
		fmt.Fprintln(out, "📭 You have no active reminders.")
		return nil
	}

	fmt.Fprintln(out, "📋 Your Active Reminders")
	for _, e := range service.RenderListing(rems, now, cfg.Reminders.Location) {
		fmt.Fprintf(out, "%s\n   %s (%s)\n", e.Title, e.When, e.Until)
	}
	return nil
}
