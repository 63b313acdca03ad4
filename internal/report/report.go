// Package report implements the scan-and-match pipeline: filtering channel
// history against the daily date tag, cross-referencing authors with the
// channel roster and rendering the posted message text.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Member is a channel member resolved via users.info.
type Member struct {
	ID          string
	DisplayName string
	IsBot       bool
}

// HistoryMessage is a single raw message from channel history.
type HistoryMessage struct {
	AuthorID  string
	Text      string
	Timestamp string
}

// ParticipantReport lists members who posted a qualifying entry.
// Names keeps first-match order within the scanned history and is not
// de-duplicated: a member with two qualifying posts appears twice.
type ParticipantReport struct {
	Names []string
	Count int
}

// DateTag returns the literal tag that marks a qualifying entry, e.g.
// "[2024.05.01]". The tag carries yesterday's date relative to now: entries
// are written during the day and counted the morning after.
func DateTag(now time.Time) string {
	return now.AddDate(0, 0, -1).Format("[2006.01.02]")
}

// FilterDaily returns the messages that count as daily entries: messages
// authored by the bot itself are dropped, then only messages whose text
// starts with yesterday's date tag are kept. A tag anywhere else in the text
// does not qualify. Input order is preserved.
func FilterDaily(msgs []HistoryMessage, botID string, now time.Time) []HistoryMessage {
	tag := DateTag(now)
	var kept []HistoryMessage
	for _, msg := range msgs {
		if msg.AuthorID == botID {
			continue
		}
		if !strings.HasPrefix(msg.Text, tag) {
			continue
		}
		kept = append(kept, msg)
	}
	return kept
}

// ExcludeBots returns the roster without bot accounts. Bots must never be
// counted as participants, so this runs before aggregation.
func ExcludeBots(members []Member) []Member {
	var users []Member
	for _, m := range members {
		if m.IsBot {
			continue
		}
		users = append(users, m)
	}
	return users
}

// Aggregate cross-references message authors against the roster. Each message
// whose author is on the roster contributes that member's display name, in
// message order. Authors not on the roster (left the channel, or excluded
// bots) contribute nothing. Repeat posters are counted once per post.
func Aggregate(msgs []HistoryMessage, roster []Member) ParticipantReport {
	var names []string
	for _, msg := range msgs {
		for _, m := range roster {
			if m.ID == msg.AuthorID {
				names = append(names, m.DisplayName)
				break
			}
		}
	}
	return ParticipantReport{Names: names, Count: len(names)}
}

// Summary renders the daily roll-call message. Each name is followed by a
// ", " separator, including the last one.
func Summary(rep ParticipantReport) string {
	var sb strings.Builder
	for _, name := range rep.Names {
		sb.WriteString(name)
		sb.WriteString(", ")
	}
	return fmt.Sprintf("금일 til을 작성한 인원은 %s총 %d명 입니다.\n오늘 하루도 수고하셨습니다.", sb.String(), rep.Count)
}

// Reminder renders the alert-mode message with the current local time.
func Reminder(now time.Time) string {
	return fmt.Sprintf("현재시간 %s입니다.\n아직 til을 작성하지 않으신 분은 빠르게 작성해주세요.", now.Format("15:04"))
}
