package notify

import (
	"github.com/suPer8Hu/assist-platform/internal/config"
	"gorm.io/gorm"
)

// Channels builds every channel the deployment has settings for. The
// dashboard channel is always available.
func Channels(cfg config.Config, db *gorm.DB) []Channel {
	chs := []Channel{NewDashboardChannel(db)}
	if cfg.SMTPHost != "" {
		chs = append(chs, NewEmailChannel(SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}))
	}
	if cfg.SMSWebhookURL != "" {
		chs = append(chs, NewSMSChannel(cfg.SMSWebhookURL, 0))
	}
	return chs
}
