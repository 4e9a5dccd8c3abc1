package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/reminderbot/internal/apperr"
	"github.com/LeventeLantos/reminderbot/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Create a reminder",
		Long: `Creates a reminder for the given content. When --time is omitted the
command asks for the event time and waits PROMPT_TIMEOUT_SECONDS for an answer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAdd,
	}
	cmd.Flags().String("user", "", "user id to remind (required)")
	cmd.Flags().String("channel", "", "channel id to post in (required)")
	cmd.Flags().String("guild", "", "guild id, empty for direct messages")
	cmd.Flags().String("time", "", "event time, e.g. \"tomorrow 3pm\" or \"2026-12-25 10:00\"")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("channel")
	rootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, store, err := loadCommon(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	userID, _ := cmd.Flags().GetString("user")
	channelID, _ := cmd.Flags().GetString("channel")
	guildID, _ := cmd.Flags().GetString("guild")
	rawTime, _ := cmd.Flags().GetString("time")

	req := service.CreateRequest{
		UserID:    userID,
		ChannelID: channelID,
		Content:   strings.Join(args, " "),
	}
	if guildID != "" {
		req.GuildID = &guildID
	}

	reminders := newReminders(cfg, store)
	out := cmd.OutOrStdout()

	if rawTime == "" {
		pending := service.NewPending(reminders, cfg.Reminders.PromptTimeout)
		ticket, err := pending.Begin(req, time.Now())
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "📝 When is this event? (answer within %s)\n> ", cfg.Reminders.PromptTimeout)
		line, err := readLine(cmd.InOrStdin(), time.Until(ticket.Deadline))
		if err != nil {
			pending.Expire(ticket.Token)
			return err
		}

		rem, err := pending.Resolve(ctx, ticket.Token, service.Reply{UserID: userID, ChannelID: channelID, Text: line}, time.Now())
		if err != nil {
			return err
		}
		printConfirmation(out, service.RenderConfirmation(rem, time.Now(), cfg.Reminders.Location))
		return nil
	}

	now := time.Now()
	rem, err := reminders.Create(ctx, req, rawTime, now)
	if err != nil {
		return err
	}
	printConfirmation(out, service.RenderConfirmation(rem, now, cfg.Reminders.Location))
	return nil
}

var errNoAnswer = errors.New("no answer given")

// readLine returns the next line from r, or ErrInteractionTimeout when none
// arrives within timeout.
func readLine(r io.Reader, timeout time.Duration) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err == io.EOF {
			return "", errNoAnswer
		}
		if res.err != nil {
			return "", fmt.Errorf("read answer: %w", res.err)
		}
		return res.line, nil
	case <-timer.C:
		return "", apperr.ErrInteractionTimeout
	}
}

func printConfirmation(w io.Writer, c service.Confirmation) {
	fmt.Fprintln(w, c.Title)
	fmt.Fprintln(w, c.Description)
	for _, s := range c.Stages {
		fmt.Fprintf(w, "  • %s\n", s)
	}
	if c.Note != "" {
		fmt.Fprintln(w, c.Note)
	}
}
