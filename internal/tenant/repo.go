package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidConfidence = errors.New("tenant: confidence floor must be within [0,1]")
	ErrInvalidKind       = errors.New("tenant: unknown rule kind")
	ErrInvalidRule       = errors.New("tenant: rule is missing required fields")
	ErrBadWebhookSecret  = errors.New("tenant: webhook secret mismatch")
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetProfile(ctx context.Context, tenantID string) (*Profile, error) {
	var p Profile
	if err := r.db.WithContext(ctx).First(&p, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile upserts the profile row.
func (r *Repo) SaveProfile(ctx context.Context, p *Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error
}

// SetWebhookSecret stores a bcrypt hash of the secret used to authenticate inbound webhooks.
func (r *Repo) SetWebhookSecret(ctx context.Context, tenantID, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&Profile{}).
		Where("tenant_id = ?", tenantID).
		Update("webhook_secret_hash", string(hash)).Error
}

// VerifyWebhookSecret returns the profile when secret matches its stored hash.
func (r *Repo) VerifyWebhookSecret(ctx context.Context, tenantID, secret string) (*Profile, error) {
	p, err := r.GetProfile(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if p.WebhookSecretHash == "" {
		return nil, ErrBadWebhookSecret
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.WebhookSecretHash), []byte(secret)); err != nil {
		return nil, ErrBadWebhookSecret
	}
	return p, nil
}

func ValidateRule(rule *Rule) error {
	if !rule.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, rule.Kind)
	}
	if rule.Confidence < 0 || rule.Confidence > 1 {
		return ErrInvalidConfidence
	}
	switch rule.Kind {
	case KindKeywordMatch, KindEmotionDetected:
		n := 0
		for _, p := range rule.Patterns {
			if strings.TrimSpace(p) != "" {
				n++
			}
		}
		if n == 0 {
			return ErrInvalidRule
		}
	case KindRetryExhaustion:
		if rule.MaxRetries <= 0 {
			return ErrInvalidRule
		}
	}
	return nil
}

// AddRule validates and appends a rule; rules of the same kind accumulate.
func (r *Repo) AddRule(ctx context.Context, rule *Rule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *Repo) ListRules(ctx context.Context, tenantID string) ([]Rule, error) {
	var rules []Rule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Repo) DeleteRule(ctx context.Context, tenantID string, id uint64) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&Rule{}).Error
}
