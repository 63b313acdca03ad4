// Package slackapi wraps the Slack Web API calls the bot needs. Every
// failure is classified as either an APIError (service said no), a
// TransportError (no usable answer) or a NotFoundError (unknown channel
// name); all of them are terminal for a run.
package slackapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"tilbot/internal/config"
	"tilbot/internal/report"
)

// Endpoint names, used in error values and the error log.
const (
	EndpointConversationsList    = "conversations.list"
	EndpointConversationsMembers = "conversations.members"
	EndpointUsersInfo            = "users.info"
	EndpointConversationsHistory = "conversations.history"
	EndpointChatPostMessage      = "chat.postMessage"
)

// Client is a thin wrapper over the Slack Web API.
type Client struct {
	api    *slack.Client
	logger *zap.Logger
}

// New builds a Client from the loaded settings. Calls go against the
// configured base URL with a bounded timeout.
func New(settings *config.Settings, logger *zap.Logger) *Client {
	base := settings.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	api := slack.New(settings.Token,
		slack.OptionAPIURL(base),
		slack.OptionHTTPClient(&http.Client{Timeout: 30 * time.Second}))
	return &Client{api: api, logger: logger}
}

// ResolveConversationID maps a channel name to the service's opaque channel
// ID via conversations.list. The match is exact and case-sensitive; an
// unknown name is a NotFoundError.
func (c *Client) ResolveConversationID(name string) (string, error) {
	channels, _, err := c.api.GetConversations(&slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           1000,
		Types:           []string{"public_channel", "private_channel"},
	})
	if err != nil {
		return "", classify(EndpointConversationsList, err)
	}

	for _, ch := range channels {
		if ch.Name == name {
			c.logger.Info("Resolved conversation",
				zap.String("conversation_name", name),
				zap.String("conversation_id", ch.ID))
			return ch.ID, nil
		}
	}
	return "", &NotFoundError{Name: name}
}

// ListMembers returns the raw member ID list for a conversation.
func (c *Client) ListMembers(conversationID string) ([]string, error) {
	members, _, err := c.api.GetUsersInConversation(&slack.GetUsersInConversationParameters{
		ChannelID: conversationID,
		Limit:     1000,
	})
	if err != nil {
		return nil, classify(EndpointConversationsMembers, err)
	}
	return members, nil
}

// ResolveUser fetches one member's identity via users.info.
func (c *Client) ResolveUser(userID string) (report.Member, error) {
	user, err := c.api.GetUserInfo(userID)
	if err != nil {
		return report.Member{}, classify(EndpointUsersInfo, err)
	}
	return report.Member{
		ID:          user.ID,
		DisplayName: user.RealName,
		IsBot:       user.IsBot,
	}, nil
}

// FetchHistorySince returns the conversation history with oldest set to the
// given cutoff, in the order the service provides.
func (c *Client) FetchHistorySince(conversationID string, oldest time.Time) ([]report.HistoryMessage, error) {
	history, err := c.api.GetConversationHistory(&slack.GetConversationHistoryParameters{
		ChannelID: conversationID,
		Oldest:    fmt.Sprintf("%.6f", float64(oldest.UnixNano())/1e9),
		Limit:     200,
	})
	if err != nil {
		return nil, classify(EndpointConversationsHistory, err)
	}

	msgs := make([]report.HistoryMessage, 0, len(history.Messages))
	for _, m := range history.Messages {
		msgs = append(msgs, report.HistoryMessage{
			AuthorID:  m.User,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}
	return msgs, nil
}

// PostMessage sends text to a conversation via chat.postMessage.
func (c *Client) PostMessage(conversationID, text string) error {
	if _, _, err := c.api.PostMessage(conversationID, slack.MsgOptionText(text, false)); err != nil {
		return classify(EndpointChatPostMessage, err)
	}
	return nil
}

// ListChannels prints the visible channels, a debugging aid for finding the
// right conversation_name.
func (c *Client) ListChannels() error {
	channels, _, err := c.api.GetConversations(&slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           1000,
		Types:           []string{"public_channel", "private_channel"},
	})
	if err != nil {
		return classify(EndpointConversationsList, err)
	}

	fmt.Println("Available channels:")
	for _, ch := range channels {
		visibility := ""
		if ch.IsPrivate {
			visibility = " (private)"
		}
		fmt.Printf("- %s (ID: %s)%s\n", ch.Name, ch.ID, visibility)
	}
	return nil
}
