package tenant

import (
	"context"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Profile{}, &Rule{}))
	return db
}

func TestValidateRule(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
		err  error
	}{
		{"keyword ok", Rule{Kind: KindKeywordMatch, Patterns: []string{"cancel"}, Confidence: 0.7}, nil},
		{"floor above one", Rule{Kind: KindKeywordMatch, Patterns: []string{"cancel"}, Confidence: 1.2}, ErrInvalidConfidence},
		{"floor negative", Rule{Kind: KindEmotionDetected, Patterns: []string{"anger"}, Confidence: -0.1}, ErrInvalidConfidence},
		{"empty keywords", Rule{Kind: KindKeywordMatch, Patterns: []string{" "}, Confidence: 0.5}, ErrInvalidRule},
		{"retry needs max", Rule{Kind: KindRetryExhaustion, Confidence: 0.5}, ErrInvalidRule},
		{"unknown kind", Rule{Kind: "sentiment", Confidence: 0.5}, ErrInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRule(&tc.rule)
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestRules_SameKindAccumulates(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AddRule(ctx, &Rule{TenantID: "t1", Kind: KindKeywordMatch, Patterns: []string{"cancel my policy"}, Confidence: 0.7}))
	require.NoError(t, repo.AddRule(ctx, &Rule{TenantID: "t1", Kind: KindKeywordMatch, Patterns: []string{"refund"}, Confidence: 0.6}))
	require.NoError(t, repo.AddRule(ctx, &Rule{TenantID: "t2", Kind: KindKeywordMatch, Patterns: []string{"other"}, Confidence: 0.6}))

	rules, err := repo.ListRules(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, []string{"cancel my policy"}, []string(rules[0].Patterns))
	assert.Equal(t, []string{"refund"}, []string(rules[1].Patterns))
}

func TestWebhookSecret(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveProfile(ctx, &Profile{TenantID: "t1", BusinessName: "Acme Insurance"}))

	_, err := repo.VerifyWebhookSecret(ctx, "t1", "anything")
	require.ErrorIs(t, err, ErrBadWebhookSecret)

	require.NoError(t, repo.SetWebhookSecret(ctx, "t1", "s3cret"))

	p, err := repo.VerifyWebhookSecret(ctx, "t1", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Acme Insurance", p.BusinessName)

	_, err = repo.VerifyWebhookSecret(ctx, "t1", "wrong")
	require.ErrorIs(t, err, ErrBadWebhookSecret)
}

func TestProfile_Notifies(t *testing.T) {
	p := Profile{NotifyChannels: []string{ChannelEmail, ChannelDashboard}}
	assert.True(t, p.Notifies(ChannelEmail))
	assert.False(t, p.Notifies(ChannelSMS))
}
