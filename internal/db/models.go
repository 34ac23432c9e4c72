package db

import (
	"github.com/suPer8Hu/assist-platform/internal/chat"
	"github.com/suPer8Hu/assist-platform/internal/escalation"
	"github.com/suPer8Hu/assist-platform/internal/knowledge"
	"github.com/suPer8Hu/assist-platform/internal/notify"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
)

// Models lists every table the server owns.
func Models() []any {
	return []any{
		&tenant.Profile{},
		&tenant.Rule{},
		&knowledge.Document{},
		&knowledge.Chunk{},
		&knowledge.Faq{},
		&chat.Turn{},
		&escalation.Record{},
		&notify.DashboardNotice{},
	}
}
