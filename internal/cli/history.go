package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencode-ai/memer/internal/config"
	"github.com/opencode-ai/memer/internal/db"
	"github.com/opencode-ai/memer/internal/models"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyType  string
	historySince string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of events to show")
	historyCmd.Flags().StringVar(&historyType, "type", "", "filter by event type (template.pulled, template.pull_failed, template.forgotten, meme.created)")
	historyCmd.Flags().StringVar(&historySince, "since", "", "only events newer than a duration (e.g. 24h) or RFC3339 time")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pulls and created memes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := db.EventQuery{Limit: historyLimit}
		if historyType != "" {
			t := models.EventType(historyType)
			query.Type = &t
		}
		if historySince != "" {
			since, err := parseSince(historySince, time.Now())
			if err != nil {
				return &UsageError{Message: err.Error()}
			}
			query.Since = &since
		}
		return runHistory(cmd.Context(), GetConfig(), query)
	},
}

func runHistory(ctx context.Context, cfg *config.Config, query db.EventQuery) error {
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	events, err := db.NewEventRepository(database).List(ctx, query)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		if events == nil {
			events = []*models.Event{}
		}
		return WriteOutput(stdout, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(stdout, "No history yet.")
		return nil
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.Type),
			e.Subject,
			eventDetail(e),
		})
	}
	return writeTable(stdout, []string{"TIME", "EVENT", "SUBJECT", "DETAIL"}, rows)
}

func eventDetail(e *models.Event) string {
	switch e.Type {
	case models.EventTypeMemeCreated:
		var p models.MemeCreatedPayload
		if json.Unmarshal(e.Payload, &p) == nil {
			return fmt.Sprintf("%s (%dpx, overflow: %s)", p.Output, p.Size, formatYesNo(p.Overflow))
		}
	case models.EventTypeTemplatePulled, models.EventTypeTemplatePullFailed, models.EventTypeTemplateForgotten:
		var p models.PullPayload
		if json.Unmarshal(e.Payload, &p) == nil {
			if p.Error != "" {
				return p.Error
			}
			if p.Path != "" {
				return p.Path
			}
			return p.Origin
		}
	}
	return ""
}

func parseSince(value string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q (want a duration like 24h or an RFC3339 time)", value)
}
