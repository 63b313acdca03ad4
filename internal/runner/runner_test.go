package runner

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tilbot/internal/config"
	"tilbot/internal/errlog"
	"tilbot/internal/slackapi"
)

// scanTime is the fixed moment every test run happens at; qualifying entries
// carry the previous day's tag.
var scanTime = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

// fakeWorkspace serves a canned single-channel Slack workspace and records
// which endpoints were called and what was posted. Tests override individual
// endpoints through handle.
type fakeWorkspace struct {
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	posted   []string
	history  string
}

func newFakeWorkspace() *fakeWorkspace {
	f := &fakeWorkspace{
		handlers: map[string]http.HandlerFunc{},
		calls:    map[string]int{},
		history:  `{"ok": true, "messages": []}`,
	}

	f.handle("conversations.list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": true, "channels": [{"id": "C1", "name": "til"}]}`)
	})
	f.handle("conversations.members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": true, "members": ["U1", "U2", "UBOT"], "response_metadata": {"next_cursor": ""}}`)
	})
	f.handle("users.info", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.FormValue("user") {
		case "U1":
			fmt.Fprint(w, `{"ok": true, "user": {"id": "U1", "real_name": "Alice", "is_bot": false}}`)
		case "U2":
			fmt.Fprint(w, `{"ok": true, "user": {"id": "U2", "real_name": "Bob", "is_bot": false}}`)
		default:
			fmt.Fprint(w, `{"ok": true, "user": {"id": "UBOT", "real_name": "til-bot", "is_bot": true}}`)
		}
	})
	f.handle("conversations.history", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.history)
	})
	f.handle("chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.posted = append(f.posted, r.FormValue("text"))
		fmt.Fprint(w, `{"ok": true, "channel": "C1", "ts": "1714640400.000300"}`)
	})

	return f
}

func (f *fakeWorkspace) handle(endpoint string, fn http.HandlerFunc) {
	f.handlers[endpoint] = fn
}

func (f *fakeWorkspace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/")
	f.calls[endpoint]++
	w.Header().Set("Content-Type", "application/json")
	if fn, ok := f.handlers[endpoint]; ok {
		fn(w, r)
		return
	}
	http.NotFound(w, r)
}

func (f *fakeWorkspace) runner(t *testing.T, errLog *errlog.Log) *Runner {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	settings := &config.Settings{
		BaseURL:          srv.URL,
		BotID:            "UBOT",
		ConversationName: "til",
		Token:            "xoxb-test",
	}
	r := New(settings, slackapi.New(settings, zap.NewNop()), errLog, zap.NewNop())
	r.now = func() time.Time { return scanTime }
	return r
}

func TestRunSummary(t *testing.T) {
	fake := newFakeWorkspace()
	fake.history = `{"ok": true, "messages": [
		{"type": "message", "user": "U1", "text": "[2024.05.01] did X", "ts": "1714610000.000100"},
		{"type": "message", "user": "U2", "text": "unrelated chatter", "ts": "1714610001.000100"},
		{"type": "message", "user": "UBOT", "text": "[2024.05.01] self post", "ts": "1714610002.000100"}
	]}`

	message, err := fake.runner(t, nil).Run(false)
	require.NoError(t, err)

	want := "금일 til을 작성한 인원은 Alice, 총 1명 입니다.\n오늘 하루도 수고하셨습니다."
	assert.Equal(t, want, message)
	require.Len(t, fake.posted, 1)
	assert.Equal(t, want, fake.posted[0])
	assert.Equal(t, 3, fake.calls["users.info"])
}

func TestRunSummaryEmptyHistory(t *testing.T) {
	fake := newFakeWorkspace()

	message, err := fake.runner(t, nil).Run(false)
	require.NoError(t, err)
	assert.Contains(t, message, "총 0명")
	require.Len(t, fake.posted, 1)
}

func TestRunCutoffIsOneDayBack(t *testing.T) {
	fake := newFakeWorkspace()
	var oldest string
	fake.handle("conversations.history", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		oldest = r.FormValue("oldest")
		fmt.Fprint(w, `{"ok": true, "messages": []}`)
	})

	_, err := fake.runner(t, nil).Run(false)
	require.NoError(t, err)

	got, err := strconv.ParseFloat(oldest, 64)
	require.NoError(t, err)
	assert.InDelta(t, float64(scanTime.Add(-24*time.Hour).Unix()), got, 1)
}

func TestRunConversationNotFound(t *testing.T) {
	fake := newFakeWorkspace()
	fake.handle("conversations.list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": true, "channels": [{"id": "C9", "name": "general"}]}`)
	})

	_, err := fake.runner(t, nil).Run(false)
	var notFound *slackapi.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// Only the list call happened; nothing was fetched or posted after it.
	assert.Equal(t, 1, fake.calls["conversations.list"])
	assert.Zero(t, fake.calls["conversations.members"])
	assert.Zero(t, fake.calls["users.info"])
	assert.Zero(t, fake.calls["conversations.history"])
	assert.Zero(t, fake.calls["chat.postMessage"])
}

func TestRunAlertMode(t *testing.T) {
	fake := newFakeWorkspace()

	message, err := fake.runner(t, nil).Run(true)
	require.NoError(t, err)

	want := fmt.Sprintf("현재시간 %s입니다.\n아직 til을 작성하지 않으신 분은 빠르게 작성해주세요.", scanTime.Format("15:04"))
	assert.Equal(t, want, message)
	require.Len(t, fake.posted, 1)
	assert.Equal(t, want, fake.posted[0])

	// Alert mode never touches the roster or history.
	assert.Zero(t, fake.calls["conversations.members"])
	assert.Zero(t, fake.calls["users.info"])
	assert.Zero(t, fake.calls["conversations.history"])
}

func TestRunAbortsOnUserResolveFailure(t *testing.T) {
	fake := newFakeWorkspace()
	fake.handle("users.info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "user_not_found"}`)
	})

	logPath := filepath.Join(t.TempDir(), "error_log.log")
	errLog, err := errlog.Open(logPath)
	require.NoError(t, err)

	_, runErr := fake.runner(t, errLog).Run(false)
	require.NoError(t, errLog.Close())

	var apiErr *slackapi.APIError
	require.ErrorAs(t, runErr, &apiErr)
	assert.Equal(t, "users.info", apiErr.Endpoint)

	// No partial message on partial data.
	assert.Empty(t, fake.posted)
	assert.Zero(t, fake.calls["conversations.history"])

	// The failure was appended to the error log.
	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "users.info")
	assert.Contains(t, string(logged), "user_not_found")
}

func TestRunAbortsOnPostFailure(t *testing.T) {
	fake := newFakeWorkspace()
	fake.handle("chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "not_in_channel"}`)
	})

	_, err := fake.runner(t, nil).Run(false)
	var apiErr *slackapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "chat.postMessage", apiErr.Endpoint)
}
