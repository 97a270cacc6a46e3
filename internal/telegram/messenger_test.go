package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/require"

	"github.com/edgard/birthdaybot/internal/resilience"
	"github.com/edgard/birthdaybot/internal/scan"
)

type apiCall struct {
	Method   string
	ChatID   string
	UserID   string
	Text     string
	Commands string
}

// fakeBotAPI answers Bot API requests with canned results keyed by method name.
type fakeBotAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	results map[string]any
	fail    map[string]bool

	// throttle holds how many more times a method answers 429.
	throttle   map[string]int
	retryAfter int
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseMultipartForm(1 << 20)
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{
		Method:   method,
		ChatID:   r.FormValue("chat_id"),
		UserID:   r.FormValue("user_id"),
		Text:     r.FormValue("text"),
		Commands: r.FormValue("commands"),
	})
	result, ok := f.results[method]
	failing := f.fail[method]
	throttled := f.throttle[method] > 0
	if throttled {
		f.throttle[method]--
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if throttled {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  429,
			"description": fmt.Sprintf("Too Many Requests: retry after %d", f.retryAfter),
			"parameters":  map[string]any{"retry_after": f.retryAfter},
		})
		return
	}
	if failing || !ok {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: not enough rights",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func newTestMessenger(t *testing.T, api *fakeBotAPI) *Messenger {
	t.Helper()
	return NewMessenger(newTestBot(t, api), WithRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
	}))
}

func defaultResults() map[string]any {
	return map[string]any{
		"sendMessage": map[string]any{
			"message_id": 1,
			"date":       0,
			"chat":       map[string]any{"id": -100, "type": "supergroup"},
		},
		"banChatMember":   true,
		"unbanChatMember": true,
		"createChatInviteLink": map[string]any{
			"invite_link":          "https://t.me/+single",
			"creator":              map[string]any{"id": 1, "is_bot": true, "first_name": "bot"},
			"creates_join_request": false,
			"is_primary":           false,
			"is_revoked":           false,
			"member_limit":         1,
		},
	}
}

func TestMessengerCalls(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{results: defaultResults()}
	m := newTestMessenger(t, api)
	ctx := context.Background()

	require.NoError(t, m.SendGroupMessage(ctx, -100, "hello group"))
	require.NoError(t, m.SendPrivateMessage(ctx, 7, "hello member"))
	require.NoError(t, m.RemoveMember(ctx, -100, 7))
	require.NoError(t, m.RestoreMember(ctx, -100, 7))

	link, err := m.CreateInviteReference(ctx, -100)
	require.NoError(t, err)
	require.Equal(t, "https://t.me/+single", link)

	require.Equal(t, []apiCall{
		{Method: "sendMessage", ChatID: "-100", Text: "hello group"},
		{Method: "sendMessage", ChatID: "7", Text: "hello member"},
		{Method: "banChatMember", ChatID: "-100", UserID: "7"},
		{Method: "unbanChatMember", ChatID: "-100", UserID: "7"},
		{Method: "createChatInviteLink", ChatID: "-100"},
	}, api.calls)
}

func TestMessengerPropagatesAPIErrors(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{results: defaultResults(), fail: map[string]bool{"banChatMember": true, "createChatInviteLink": true}}
	m := newTestMessenger(t, api)
	ctx := context.Background()

	require.Error(t, m.RemoveMember(ctx, -100, 7))
	_, err := m.CreateInviteReference(ctx, -100)
	require.Error(t, err)
	require.NoError(t, m.SendGroupMessage(ctx, -100, "still works"))
}

func TestMessengerRetriesRateLimitedCalls(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{results: defaultResults(), throttle: map[string]int{"sendMessage": 1, "banChatMember": 5}}
	m := newTestMessenger(t, api)
	ctx := context.Background()

	require.NoError(t, m.SendGroupMessage(ctx, -100, "eventually"))

	err := m.RemoveMember(ctx, -100, 7)
	require.ErrorIs(t, err, resilience.ErrExhaustedRetries)
	var tooMany *bot.TooManyRequestsError
	require.ErrorAs(t, err, &tooMany)

	var sends, bans int
	for _, c := range api.calls {
		switch c.Method {
		case "sendMessage":
			sends++
		case "banChatMember":
			bans++
		}
	}
	require.Equal(t, 2, sends)
	require.Equal(t, 3, bans)
}

func TestMessengerGivesUpOnLongRateLimitWait(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{results: defaultResults(), throttle: map[string]int{"sendMessage": 1}, retryAfter: 60}
	m := newTestMessenger(t, api)

	start := time.Now()
	err := m.SendGroupMessage(context.Background(), -100, "later")
	require.ErrorIs(t, err, resilience.ErrWaitTooLong)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, api.calls, 1)
}

func TestMessengerDoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{results: defaultResults(), fail: map[string]bool{"unbanChatMember": true}}
	m := newTestMessenger(t, api)

	err := m.RestoreMember(context.Background(), -100, 7)
	require.Error(t, err)
	require.NotErrorIs(t, err, resilience.ErrExhaustedRetries)
	require.Len(t, api.calls, 1)
}

func TestMessengerMembershipStatus(t *testing.T) {
	t.Parallel()

	user := map[string]any{"id": 7, "is_bot": false, "first_name": "Alice"}
	tests := []struct {
		name   string
		member map[string]any
		want   scan.MembershipStatus
	}{
		{"owner", map[string]any{"status": "creator", "user": user, "is_anonymous": false}, scan.StatusOwner},
		{"member", map[string]any{"status": "member", "user": user}, scan.StatusMember},
		{"left", map[string]any{"status": "left", "user": user}, scan.StatusLeft},
		{"kicked", map[string]any{"status": "kicked", "user": user, "until_date": 0}, scan.StatusKicked},
		{"restricted inside", map[string]any{"status": "restricted", "user": user, "is_member": true}, scan.StatusRestricted},
		{"restricted outside", map[string]any{"status": "restricted", "user": user, "is_member": false}, scan.StatusLeft},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			results := defaultResults()
			results["getChatMember"] = tc.member
			m := newTestMessenger(t, &fakeBotAPI{results: results})

			status, err := m.GetMembershipStatus(context.Background(), -100, 7)
			require.NoError(t, err)
			require.Equal(t, tc.want, status)
			require.Equal(t, tc.want != scan.StatusLeft && tc.want != scan.StatusKicked, status.InGroup())
		})
	}
}

func TestMessengerMembershipStatusError(t *testing.T) {
	t.Parallel()

	m := newTestMessenger(t, &fakeBotAPI{results: defaultResults()})

	status, err := m.GetMembershipStatus(context.Background(), -100, 7)
	require.Error(t, err)
	require.Equal(t, scan.StatusUnknown, status)
}
