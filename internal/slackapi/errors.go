package slackapi

import (
	"errors"
	"fmt"

	"github.com/slack-go/slack"
)

// APIError means the service answered but reported failure (ok: false).
// Reason carries the service's error string verbatim.
type APIError struct {
	Endpoint string
	Reason   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api %s: %s", e.Endpoint, e.Reason)
}

// TransportError means the call never produced a decodable service answer:
// network failure, bad HTTP status or undecodable body.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("slack transport %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError means the channel list contained no conversation with the
// requested name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation %q not found", e.Name)
}

// classify maps a slack-go error onto the client's error taxonomy.
func classify(endpoint string, err error) error {
	var serr slack.SlackErrorResponse
	if errors.As(err, &serr) {
		return &APIError{Endpoint: endpoint, Reason: serr.Err}
	}
	return &TransportError{Endpoint: endpoint, Err: err}
}
