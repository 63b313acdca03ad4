// Package runner sequences one bot run: resolve the conversation, then
// either post the reminder (alert mode) or scan, aggregate and post the
// daily summary. The first failure aborts the run; nothing is ever posted
// on partial data.
package runner

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tilbot/internal/config"
	"tilbot/internal/errlog"
	"tilbot/internal/report"
	"tilbot/internal/slackapi"
)

// historyWindow bounds the history fetch. Entries carry yesterday's date
// tag, so one day back is all a run ever needs.
const historyWindow = 24 * time.Hour

// Runner executes a single run against one conversation.
type Runner struct {
	settings *config.Settings
	api      *slackapi.Client
	errlog   *errlog.Log
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a Runner. errLog may be nil, in which case API failures are
// not recorded to file.
func New(settings *config.Settings, api *slackapi.Client, errLog *errlog.Log, logger *zap.Logger) *Runner {
	return &Runner{
		settings: settings,
		api:      api,
		errlog:   errLog,
		logger:   logger,
		now:      time.Now,
	}
}

// Run performs one run and returns the text that was posted.
func (r *Runner) Run(alert bool) (string, error) {
	conversationID, err := r.api.ResolveConversationID(r.settings.ConversationName)
	if err != nil {
		return "", r.fail("resolving conversation", err)
	}

	var text string
	if alert {
		text = report.Reminder(r.now())
	} else {
		text, err = r.buildSummary(conversationID)
		if err != nil {
			return "", err
		}
	}

	if err := r.api.PostMessage(conversationID, text); err != nil {
		return "", r.fail("posting message", err)
	}

	r.logger.Info("Posted message",
		zap.String("conversation_id", conversationID),
		zap.Bool("alert", alert))
	return text, nil
}

// buildSummary runs the scan-and-match pipeline for summary mode.
func (r *Runner) buildSummary(conversationID string) (string, error) {
	memberIDs, err := r.api.ListMembers(conversationID)
	if err != nil {
		return "", r.fail("listing members", err)
	}

	// No partial roster: any unresolved member aborts the run, otherwise
	// the bot/non-member exclusion below would be unreliable.
	members := make([]report.Member, 0, len(memberIDs))
	for _, id := range memberIDs {
		member, err := r.api.ResolveUser(id)
		if err != nil {
			return "", r.fail("resolving user", err)
		}
		members = append(members, member)
	}
	roster := report.ExcludeBots(members)

	now := r.now()
	history, err := r.api.FetchHistorySince(conversationID, now.Add(-historyWindow))
	if err != nil {
		return "", r.fail("fetching history", err)
	}

	entries := report.FilterDaily(history, r.settings.BotID, now)
	rep := report.Aggregate(entries, roster)

	r.logger.Info("Aggregated daily entries",
		zap.Int("roster_size", len(roster)),
		zap.Int("history_messages", len(history)),
		zap.Int("participants", rep.Count))
	return report.Summary(rep), nil
}

// fail wraps a stage failure and records service-reported errors to the
// error log.
func (r *Runner) fail(stage string, err error) error {
	var apiErr *slackapi.APIError
	if r.errlog != nil && errors.As(err, &apiErr) {
		r.errlog.Append(apiErr.Endpoint, apiErr.Reason)
	}
	return fmt.Errorf("%s: %w", stage, err)
}
