// Package intervention decides whether a conversation needs a human, using the
// generation service as a one-token boolean oracle.
package intervention

import (
	"fmt"
	"strings"

	"github.com/suPer8Hu/assist-platform/internal/ai"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
)

// DefaultKeywordWindow is how many recent messages the keyword block sees when
// no retry-exhaustion rule sets a larger window.
const DefaultKeywordWindow = 3

// Trigger is one rule kind rendered as a task block. All rules of a kind share
// one block; adding a kind means adding a Trigger.
type Trigger interface {
	Kind() tenant.RuleKind
	Block(history []ai.Message, latest string) string
}

type Keyword struct {
	Phrase string
	Floor  float64
}

type KeywordMatch struct {
	Keywords []Keyword
	// Window is the number of trailing history messages shown to the oracle.
	Window int
}

type RetryLimit struct {
	Max   int
	Floor float64
}

type RetryExhaustion struct {
	Limits []RetryLimit
}

type EmotionTarget struct {
	Emotions []string
	Floor    float64
}

type EmotionDetected struct {
	Targets []EmotionTarget
}

func (KeywordMatch) Kind() tenant.RuleKind    { return tenant.KindKeywordMatch }
func (RetryExhaustion) Kind() tenant.RuleKind { return tenant.KindRetryExhaustion }
func (EmotionDetected) Kind() tenant.RuleKind { return tenant.KindEmotionDetected }

func (k KeywordMatch) Block(history []ai.Message, latest string) string {
	var b strings.Builder
	b.WriteString("TASK keyword_match: Decide whether the user's intent matches any keyword below with at least the given confidence.\n")
	for _, kw := range k.Keywords {
		fmt.Fprintf(&b, "- %q (confidence >= %.2f)\n", kw.Phrase, kw.Floor)
	}
	b.WriteString("Recent messages:\n")
	writeTranscript(&b, tail(history, k.Window))
	fmt.Fprintf(&b, "Latest message: %q\n", latest)
	return b.String()
}

func (r RetryExhaustion) Block(history []ai.Message, latest string) string {
	var b strings.Builder
	b.WriteString("TASK retry_exhaustion: Count how often the user re-articulated the same question ")
	b.WriteString("(repeated or clarified requests showing mild frustration). Decide whether the count exceeds a limit below with at least the given confidence.\n")
	for _, l := range r.Limits {
		fmt.Fprintf(&b, "- more than %d re-articulations (confidence >= %.2f)\n", l.Max, l.Floor)
	}
	b.WriteString("Recent messages:\n")
	writeTranscript(&b, history)
	fmt.Fprintf(&b, "Latest message: %q\n", latest)
	return b.String()
}

func (e EmotionDetected) Block(_ []ai.Message, latest string) string {
	var b strings.Builder
	b.WriteString("TASK emotion_detected: Decide whether the latest message expresses any target emotion below with at least the given confidence.\n")
	for _, t := range e.Targets {
		fmt.Fprintf(&b, "- %s (confidence >= %.2f)\n", strings.Join(t.Emotions, ", "), t.Floor)
	}
	fmt.Fprintf(&b, "Latest message: %q\n", latest)
	return b.String()
}

// Triggers holds at most one Trigger per rule kind, in a fixed kind order.
type Triggers []Trigger

func (t Triggers) Empty() bool { return len(t) == 0 }

// Partition groups rules by kind into tagged variants. Unknown kinds and rules
// with nothing to match are ignored.
func Partition(rules []tenant.Rule) Triggers {
	var (
		kw    KeywordMatch
		retry RetryExhaustion
		emo   EmotionDetected
	)
	maxRetries := 0
	for _, r := range rules {
		switch r.Kind {
		case tenant.KindKeywordMatch:
			for _, p := range r.Patterns {
				if p = strings.TrimSpace(p); p != "" {
					kw.Keywords = append(kw.Keywords, Keyword{Phrase: p, Floor: r.Confidence})
				}
			}
		case tenant.KindRetryExhaustion:
			retry.Limits = append(retry.Limits, RetryLimit{Max: r.MaxRetries, Floor: r.Confidence})
			if r.MaxRetries > maxRetries {
				maxRetries = r.MaxRetries
			}
		case tenant.KindEmotionDetected:
			var targets []string
			for _, p := range r.Patterns {
				if p = strings.TrimSpace(p); p != "" {
					targets = append(targets, p)
				}
			}
			if len(targets) > 0 {
				emo.Targets = append(emo.Targets, EmotionTarget{Emotions: targets, Floor: r.Confidence})
			}
		}
	}

	kw.Window = DefaultKeywordWindow
	if maxRetries > 0 {
		kw.Window = maxRetries
	}

	var out Triggers
	if len(kw.Keywords) > 0 {
		out = append(out, kw)
	}
	if len(retry.Limits) > 0 {
		out = append(out, retry)
	}
	if len(emo.Targets) > 0 {
		out = append(out, emo)
	}
	return out
}

func tail(history []ai.Message, n int) []ai.Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func writeTranscript(b *strings.Builder, history []ai.Message) {
	if len(history) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for _, m := range history {
		fmt.Fprintf(b, "%s: %s\n", m.Role, m.Content)
	}
}
