package intervention

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/assist-platform/internal/ai"
	"github.com/suPer8Hu/assist-platform/internal/ai/mock"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
	"gorm.io/datatypes"
)

func rules() []tenant.Rule {
	return []tenant.Rule{
		{Kind: tenant.KindKeywordMatch, Patterns: datatypes.JSONSlice[string]{"cancel my policy"}, Confidence: 0.7},
		{Kind: tenant.KindEmotionDetected, Patterns: datatypes.JSONSlice[string]{"anger", "despair"}, Confidence: 0.8},
		{Kind: tenant.KindKeywordMatch, Patterns: datatypes.JSONSlice[string]{"speak to a manager", " "}, Confidence: 0.6},
		{Kind: tenant.KindRetryExhaustion, MaxRetries: 4, Confidence: 0.5},
	}
}

func TestPartition_OneVariantPerKind(t *testing.T) {
	triggers := Partition(rules())
	require.Len(t, triggers, 3)

	kw, ok := triggers[0].(KeywordMatch)
	require.True(t, ok)
	assert.Equal(t, []Keyword{{"cancel my policy", 0.7}, {"speak to a manager", 0.6}}, kw.Keywords)
	assert.Equal(t, 4, kw.Window)

	retry, ok := triggers[1].(RetryExhaustion)
	require.True(t, ok)
	assert.Equal(t, []RetryLimit{{Max: 4, Floor: 0.5}}, retry.Limits)

	emo, ok := triggers[2].(EmotionDetected)
	require.True(t, ok)
	assert.Equal(t, []string{"anger", "despair"}, emo.Targets[0].Emotions)
}

func TestPartition_DefaultKeywordWindow(t *testing.T) {
	triggers := Partition([]tenant.Rule{{Kind: tenant.KindKeywordMatch, Patterns: datatypes.JSONSlice[string]{"refund"}, Confidence: 0.5}})
	require.Len(t, triggers, 1)
	assert.Equal(t, DefaultKeywordWindow, triggers[0].(KeywordMatch).Window)
	assert.True(t, Partition(nil).Empty())
}

func TestTriggerPrompt_Structure(t *testing.T) {
	history := []ai.Message{
		{Role: ai.RoleUser, Content: "m1"},
		{Role: ai.RoleAssistant, Content: "m2"},
		{Role: ai.RoleUser, Content: "m3"},
		{Role: ai.RoleAssistant, Content: "m4"},
		{Role: ai.RoleUser, Content: "m5"},
	}
	p := TriggerPrompt(Partition(rules()), history, "I am furious", &tenant.Profile{BusinessName: "Acme"})

	assert.True(t, strings.HasPrefix(p, "You classify messages that a client sent to Acme"))
	assert.Equal(t, 1, strings.Count(p, "TASK keyword_match"))
	assert.Equal(t, 1, strings.Count(p, "TASK retry_exhaustion"))
	assert.Equal(t, 1, strings.Count(p, "TASK emotion_detected"))
	assert.True(t, strings.HasSuffix(p, outputContract))
	assert.Contains(t, p, latestWins)
	assert.Contains(t, p, `"cancel my policy" (confidence >= 0.70)`)

	// keyword block shows only the trailing window
	kwBlock := Partition(rules())[0].Block(history, "x")
	assert.NotContains(t, kwBlock, "m1")
	assert.Contains(t, kwBlock, "m2")
}

func TestClassify_OneTokenCall(t *testing.T) {
	p := mock.NewProvider()
	p.ChatFunc = func(ctx context.Context, messages []ai.Message, maxTokens int) (string, error) {
		return " True\n", nil
	}
	c := NewClassifier(NewOracle(p, nil))

	ok, err := c.Classify(context.Background(), Partition(rules()), nil, "I want to cancel my policy", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	call, _ := p.Last()
	assert.Equal(t, 1, call.MaxTokens)
	assert.Contains(t, call.System(), "TASK keyword_match")
}

func TestClassify_NoTriggersSkipsCall(t *testing.T) {
	p := mock.NewProvider()
	ok, err := NewClassifier(NewOracle(p, nil)).Classify(context.Background(), nil, nil, "hello", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, p.Calls())
}

func TestClassify_MalformedOutputFailsClosed(t *testing.T) {
	for _, out := range []string{"", "true", "Yes", "True.", "TrueFalse", "False"} {
		p := mock.NewProvider()
		p.ChatFunc = func(ctx context.Context, messages []ai.Message, maxTokens int) (string, error) {
			return out, nil
		}
		ok, err := NewClassifier(NewOracle(p, nil)).Classify(context.Background(), Partition(rules()), nil, "x", nil)
		require.NoError(t, err, out)
		assert.False(t, ok, "output %q", out)
	}
}

func TestClassify_TransportErrorSurfaces(t *testing.T) {
	p := mock.NewProvider()
	p.ChatFunc = func(ctx context.Context, messages []ai.Message, maxTokens int) (string, error) {
		return "", context.DeadlineExceeded
	}
	_, err := NewClassifier(NewOracle(p, nil)).Confirm(context.Background(), nil, "yes", nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestConfirm_Prompt(t *testing.T) {
	p := mock.NewProvider()
	p.ChatFunc = func(ctx context.Context, messages []ai.Message, maxTokens int) (string, error) {
		return "False", nil
	}
	ok, err := NewClassifier(NewOracle(p, nil)).Confirm(context.Background(), nil, "what are your hours?", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	call, _ := p.Last()
	assert.Contains(t, call.System(), "TASK confirmation")
	assert.Contains(t, call.System(), `Latest message: "what are your hours?"`)
	assert.Equal(t, 1, call.MaxTokens)
}

func TestParseVerdict(t *testing.T) {
	v, ok := ParseVerdict("  False ")
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = ParseVerdict("maybe")
	assert.False(t, ok)
}
