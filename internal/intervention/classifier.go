package intervention

import (
	"context"
	"fmt"
	"strings"

	"github.com/suPer8Hu/assist-platform/internal/ai"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
)

const (
	latestWins     = "The latest message has the highest priority: when it conflicts with earlier history, it overrides the history."
	outputContract = "Answer with exactly one token: True if ANY task above is satisfied, otherwise False. Output nothing else."
	evaluateInput  = "Evaluate the tasks."
)

type Classifier struct {
	oracle *Oracle
}

func NewClassifier(o *Oracle) *Classifier {
	return &Classifier{oracle: o}
}

// Classify reports whether any trigger fires on the latest message. No triggers
// means no call and false.
func (c *Classifier) Classify(ctx context.Context, triggers Triggers, history []ai.Message, latest string, profile *tenant.Profile) (bool, error) {
	if triggers.Empty() {
		return false, nil
	}
	return c.oracle.Ask(ctx, TriggerPrompt(triggers, history, latest, profile), evaluateInput)
}

// Confirm reports whether latest explicitly confirms the user wants a human.
func (c *Classifier) Confirm(ctx context.Context, history []ai.Message, latest string, profile *tenant.Profile) (bool, error) {
	return c.oracle.Ask(ctx, ConfirmPrompt(history, latest, profile), evaluateInput)
}

func TriggerPrompt(triggers Triggers, history []ai.Message, latest string, profile *tenant.Profile) string {
	var b strings.Builder
	b.WriteString(header(profile))
	for _, t := range triggers {
		b.WriteString("\n")
		b.WriteString(t.Block(history, latest))
	}
	b.WriteString("\n")
	b.WriteString(latestWins)
	b.WriteString("\n")
	b.WriteString(outputContract)
	return b.String()
}

func ConfirmPrompt(history []ai.Message, latest string, profile *tenant.Profile) string {
	var b strings.Builder
	b.WriteString(header(profile))
	b.WriteString("\nTASK confirmation: The assistant asked whether the user wants to be connected to a human. ")
	b.WriteString("Decide whether the latest message explicitly confirms that the user wants human help. ")
	b.WriteString("Questions, hesitation or unrelated messages are not a confirmation.\n")
	b.WriteString("Recent messages:\n")
	writeTranscript(&b, tail(history, DefaultKeywordWindow))
	fmt.Fprintf(&b, "Latest message: %q\n", latest)
	b.WriteString("\n")
	b.WriteString(latestWins)
	b.WriteString("\n")
	b.WriteString("Answer with exactly one token: True or False. Output nothing else.")
	return b.String()
}

func header(p *tenant.Profile) string {
	name := "a business"
	if p != nil && strings.TrimSpace(p.BusinessName) != "" {
		name = p.BusinessName
	}
	return fmt.Sprintf("You classify messages that a client sent to %s through its customer chat.\n", name)
}
