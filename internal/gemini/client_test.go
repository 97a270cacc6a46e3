package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/edgard/birthdaybot/internal/config"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	errs     []error
	response *genai.GenerateContentResponse
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.response, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testConfig() config.GeminiConfig {
	return config.GeminiConfig{
		APIKey:     "key",
		Model:      "gemini-test",
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}
}

func TestBirthdayGreeting(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: textResponse("  \"Happy birthday, @alice!\"\n")}
	g := newGreeter(gen, testConfig(), nil)

	text, err := g.BirthdayGreeting(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Happy birthday, @alice!", text)
	require.Equal(t, 1, gen.calls)
	require.Contains(t, gen.prompts[0], "@alice")
}

func TestBirthdayGreetingRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"retriable then success", []error{genai.APIError{Code: 503}}, 2, false},
		{"retriable pointer then success", []error{&genai.APIError{Code: 500}}, 2, false},
		{"retries exhausted", []error{genai.APIError{Code: 503}, genai.APIError{Code: 503}, genai.APIError{Code: 503}}, 3, true},
		{"non retriable api error", []error{genai.APIError{Code: 400}}, 1, true},
		{"transport error", []error{errors.New("connection reset")}, 1, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gen := &fakeGenerator{errs: tc.errs, response: textResponse("Happy birthday!")}
			g := newGreeter(gen, testConfig(), nil)

			text, err := g.BirthdayGreeting(context.Background(), "Bob")
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, "Happy birthday!", text)
			}
			require.Equal(t, tc.wantCalls, gen.calls)
		})
	}
}

func TestBirthdayGreetingRejectsEmptyResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"blocked", &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
			BlockReason:        genai.BlockedReasonSafety,
			BlockReasonMessage: "unsafe",
		}}},
		{"blank text", textResponse("   ")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := newGreeter(&fakeGenerator{response: tc.resp}, testConfig(), nil)
			_, err := g.BirthdayGreeting(context.Background(), "Bob")
			require.Error(t, err)
		})
	}
}

func TestBirthdayGreetingTruncates(t *testing.T) {
	t.Parallel()

	g := newGreeter(&fakeGenerator{response: textResponse(strings.Repeat("🎉", maxGreetingLength+50))}, testConfig(), nil)
	text, err := g.BirthdayGreeting(context.Background(), "Bob")
	require.NoError(t, err)
	require.Len(t, []rune(text), maxGreetingLength)
}

func TestNewGreeterRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGreeter(context.Background(), config.GeminiConfig{}, nil)
	require.Error(t, err)
}
