// Package prompt builds the system prompt handed to the generation service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/suPer8Hu/assist-platform/internal/retrieval"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
)

const (
	ContextHeader = "Context:"
	NoContext     = "No relevant context was found in the knowledge base for this message. Do not invent facts about the business."
	ContextPolicy = "Use only the context above for factual claims about the business. " +
		"If the context is insufficient, ask the user a clarifying question. " +
		"Prefer FAQ entries over document context when they disagree."
	MaxReplyChars = 1000
)

type Directive int

const (
	DirectiveNone Directive = iota
	// DirectiveAskConfirmation forces the reply to ask whether the user wants a human.
	DirectiveAskConfirmation
	// DirectiveEscalationPending tells the model a human was already notified.
	DirectiveEscalationPending
)

const (
	askConfirmationText = "IMPORTANT: The conversation may need a human teammate. In this reply, only ask the user " +
		"to explicitly confirm whether they want to be connected to a human. Do not ask for any further details " +
		"and do not answer other questions in this reply."
	pendingText = "A human teammate has already been notified and will join shortly. Do not ask the user whether " +
		"they want a human again. Keep helping with what you can."
)

// BasePrompt renders the tenant's voice settings and an optional escalation directive.
func BasePrompt(p *tenant.Profile, d Directive) string {
	var b strings.Builder
	name := "the business"
	if p != nil && strings.TrimSpace(p.BusinessName) != "" {
		name = p.BusinessName
	}
	fmt.Fprintf(&b, "You are the customer assistant for %s and answer on its behalf.\n", name)
	if p != nil && p.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", p.Tone)
	}
	if p != nil && p.UseEmoji {
		b.WriteString("You may use emoji sparingly.\n")
	} else {
		b.WriteString("Do not use emoji.\n")
	}
	fmt.Fprintf(&b, "Keep every reply under %d characters.\n", MaxReplyChars)
	if p != nil && p.Signature != "" {
		fmt.Fprintf(&b, "End every reply with the signature: %s\n", p.Signature)
	}

	switch d {
	case DirectiveAskConfirmation:
		b.WriteString("\n" + askConfirmationText + "\n")
	case DirectiveEscalationPending:
		b.WriteString("\n" + pendingText + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Assemble concatenates base instructions, the tagged context block, the context
// policy and the user message. An empty context block is stated, never omitted.
func Assemble(base string, docs []retrieval.DocHit, faqs []retrieval.FaqHit, userMessage string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))
	b.WriteString("\n\n")
	b.WriteString(ContextHeader)
	b.WriteString("\n")

	if len(docs) == 0 && len(faqs) == 0 {
		b.WriteString(NoContext)
		b.WriteString("\n")
	}
	for _, h := range faqs {
		fmt.Fprintf(&b, "[faq:%s] Q: %s\nA: %s\n", h.Faq.ID, strings.TrimSpace(h.Faq.Question), strings.TrimSpace(h.Faq.Answer))
	}
	for _, h := range docs {
		fmt.Fprintf(&b, "[doc:%s] %s\n", h.Chunk.ID, strings.TrimSpace(h.Chunk.Content))
	}

	b.WriteString("\n")
	b.WriteString(ContextPolicy)
	b.WriteString("\n\nUser message:\n")
	b.WriteString(strings.TrimSpace(userMessage))
	return b.String()
}
