package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suPer8Hu/assist-platform/internal/knowledge"
	"github.com/suPer8Hu/assist-platform/internal/retrieval"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
)

func TestAssemble_EmptyPoolsStateNoContext(t *testing.T) {
	out := Assemble("Be nice.", nil, nil, "Where are you?")

	assert.Equal(t, "Be nice.\n\nContext:\n"+NoContext+"\n\n"+ContextPolicy+"\n\nUser message:\nWhere are you?", out)
}

func TestAssemble_OrderAndTags(t *testing.T) {
	docs := []retrieval.DocHit{{Chunk: knowledge.Chunk{ID: "c1", Content: "Open Monday to Friday."}, Score: 0.4}}
	faqs := []retrieval.FaqHit{{Faq: knowledge.Faq{ID: "f1", Question: "Hours?", Answer: "Nine to five."}, Score: 0.9}}

	out := Assemble("Base.", docs, faqs, "When are you open?")

	assert.NotContains(t, out, NoContext)
	iBase := strings.Index(out, "Base.")
	iFaq := strings.Index(out, "[faq:f1] Q: Hours?\nA: Nine to five.")
	iDoc := strings.Index(out, "[doc:c1] Open Monday to Friday.")
	iPolicy := strings.Index(out, ContextPolicy)
	iUser := strings.Index(out, "User message:\nWhen are you open?")

	for _, i := range []int{iBase, iFaq, iDoc, iPolicy, iUser} {
		assert.GreaterOrEqual(t, i, 0)
	}
	assert.True(t, iBase < iFaq && iFaq < iDoc && iDoc < iPolicy && iPolicy < iUser)
}

func TestBasePrompt_Directives(t *testing.T) {
	p := &tenant.Profile{BusinessName: "Acme Insurance", Tone: "warm", Signature: "- Acme"}

	plain := BasePrompt(p, DirectiveNone)
	assert.Contains(t, plain, "Acme Insurance")
	assert.Contains(t, plain, "Tone: warm.")
	assert.Contains(t, plain, "Do not use emoji.")
	assert.Contains(t, plain, "signature: - Acme")
	assert.NotContains(t, plain, askConfirmationText)

	ask := BasePrompt(p, DirectiveAskConfirmation)
	assert.Contains(t, ask, askConfirmationText)

	pending := BasePrompt(p, DirectiveEscalationPending)
	assert.Contains(t, pending, pendingText)
	assert.NotContains(t, pending, askConfirmationText)
}

func TestBasePrompt_NilProfile(t *testing.T) {
	assert.Contains(t, BasePrompt(nil, DirectiveNone), "the business")
}
