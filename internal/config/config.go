// Package config loads the bot's JSON descriptor and token files into an
// immutable Settings value.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Error reports a bad or incomplete configuration. Configuration problems
// are fatal to a run; there is no default or retry.
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Reason)
}

// Settings holds everything a run needs. Loaded once at startup, never
// mutated afterwards.
type Settings struct {
	BaseURL          string
	BotID            string
	ConversationName string
	Token            string
}

// botRef accepts both descriptor shapes for the bot field:
// {"bot": {"id": "U..."}} and the older {"bot": "U..."}.
type botRef struct {
	ID string
}

func (b *botRef) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		b.ID = plain
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	b.ID = obj.ID
	return nil
}

type descriptor struct {
	URL              string `json:"url"`
	Bot              botRef `json:"bot"`
	ConversationName string `json:"conversation_name"`
	TokenInfo        struct {
		Path string `json:"path"`
		Name string `json:"name"`
	} `json:"token_info"`
}

// Load reads the descriptor at configPath, then the token file it points to.
// The token path is resolved relative to the descriptor's directory unless it
// is absolute. tokenOverride, when non-empty, replaces the token file lookup
// entirely (used for the TIL_TOKEN environment override).
func Load(configPath, tokenOverride string) (*Settings, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, &Error{Path: configPath, Reason: fmt.Sprintf("unreadable: %v", err)}
	}

	var desc descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, &Error{Path: configPath, Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	switch {
	case desc.URL == "":
		return nil, &Error{Path: configPath, Reason: "missing required key 'url'"}
	case desc.Bot.ID == "":
		return nil, &Error{Path: configPath, Reason: "missing required key 'bot'"}
	case desc.ConversationName == "":
		return nil, &Error{Path: configPath, Reason: "missing required key 'conversation_name'"}
	}

	settings := &Settings{
		BaseURL:          desc.URL,
		BotID:            desc.Bot.ID,
		ConversationName: desc.ConversationName,
	}

	if tokenOverride != "" {
		settings.Token = tokenOverride
		return settings, nil
	}

	if desc.TokenInfo.Path == "" {
		return nil, &Error{Path: configPath, Reason: "missing required key 'token_info.path'"}
	}
	if desc.TokenInfo.Name == "" {
		return nil, &Error{Path: configPath, Reason: "missing required key 'token_info.name'"}
	}

	tokenPath := desc.TokenInfo.Path
	if !filepath.IsAbs(tokenPath) {
		tokenPath = filepath.Join(filepath.Dir(configPath), tokenPath)
	}

	token, err := loadToken(tokenPath, desc.TokenInfo.Name)
	if err != nil {
		return nil, err
	}
	settings.Token = token
	return settings, nil
}

// loadToken reads a flat {name: token} JSON file and selects one entry.
func loadToken(path, name string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Path: path, Reason: fmt.Sprintf("unreadable: %v", err)}
	}

	var tokens map[string]string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return "", &Error{Path: path, Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	token, ok := tokens[name]
	if !ok || token == "" {
		return "", &Error{Path: path, Reason: fmt.Sprintf("token %q not found", name)}
	}
	return token, nil
}
