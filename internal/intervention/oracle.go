package intervention

import (
	"context"
	"strings"

	"github.com/suPer8Hu/assist-platform/internal/ai"
	"go.uber.org/zap"
)

const (
	VerdictTrue  = "True"
	VerdictFalse = "False"
)

// Oracle asks the generation service a yes/no question with a one-token budget.
// Transport errors are returned; anything other than an exact verdict is false.
type Oracle struct {
	provider ai.Provider
	log      *zap.Logger
}

func NewOracle(p ai.Provider, log *zap.Logger) *Oracle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Oracle{provider: p, log: log}
}

func (o *Oracle) Ask(ctx context.Context, instructions, input string) (bool, error) {
	out, err := ai.Generate(ctx, o.provider, instructions, []ai.Message{{Role: ai.RoleUser, Content: input}}, 1)
	if err != nil {
		return false, err
	}
	verdict, ok := ParseVerdict(out)
	if !ok {
		o.log.Warn("classifier returned malformed output; treating as False", zap.String("output", out))
	}
	return verdict, nil
}

// ParseVerdict accepts exactly True or False, ignoring surrounding whitespace.
func ParseVerdict(s string) (verdict, ok bool) {
	switch strings.TrimSpace(s) {
	case VerdictTrue:
		return true, true
	case VerdictFalse:
		return false, true
	}
	return false, false
}
