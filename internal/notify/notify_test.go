package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
	"gorm.io/gorm"
)

type countingChannel struct {
	name  string
	calls atomic.Int32
	err   error
}

func (c *countingChannel) Name() string { return c.name }

func (c *countingChannel) Send(ctx context.Context, n Notification) error {
	c.calls.Add(1)
	return c.err
}

func sample() Notification {
	return Notification{
		EscalationID:   "01HZX0000000000000000000AA",
		TenantID:       "t1",
		ConversationID: "+4915100000",
		BusinessName:   "Acme Insurance",
		TriggerMessage: "I want to cancel my policy",
		Email:          "owner@acme.test",
		Phone:          "+4915199999",
	}
}

func TestDispatcher_FansOutToSelectedChannelsOnce(t *testing.T) {
	email := &countingChannel{name: tenant.ChannelEmail}
	sms := &countingChannel{name: tenant.ChannelSMS}
	dash := &countingChannel{name: tenant.ChannelDashboard}
	d := NewDispatcher(nil, email, sms, dash)

	n := sample()
	n.Channels = []string{tenant.ChannelEmail, tenant.ChannelDashboard, tenant.ChannelEmail}
	require.NoError(t, d.Notify(context.Background(), n))

	assert.Equal(t, int32(1), email.calls.Load())
	assert.Equal(t, int32(0), sms.calls.Load())
	assert.Equal(t, int32(1), dash.calls.Load())
}

func TestDispatcher_OneFailureDoesNotStopOthers(t *testing.T) {
	email := &countingChannel{name: tenant.ChannelEmail, err: errors.New("smtp down")}
	dash := &countingChannel{name: tenant.ChannelDashboard}
	d := NewDispatcher(nil, email, dash)

	n := sample()
	n.Channels = []string{tenant.ChannelEmail, tenant.ChannelDashboard, "pager"}
	err := d.Notify(context.Background(), n)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.ErrorIs(t, err, ErrUnknownChannel)
	assert.Equal(t, int32(1), dash.calls.Load())
}

func TestEmailChannel_BuildsMessage(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	ch := NewEmailChannel(SMTPConfig{Host: "smtp.acme.test", Port: 587, From: "bot@acme.test"})
	ch.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, ch.Send(context.Background(), sample()))
	assert.Equal(t, "smtp.acme.test:587", gotAddr)
	assert.Equal(t, []string{"owner@acme.test"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Conversation +4915100000 needs a human\r\n")
	assert.Contains(t, gotMsg, "I want to cancel my policy")

	n := sample()
	n.Email = ""
	assert.Error(t, ch.Send(context.Background(), n))
}

func TestSMSChannel_PostsToGateway(t *testing.T) {
	var got smsReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	require.NoError(t, NewSMSChannel(srv.URL, time.Second).Send(context.Background(), sample()))
	assert.Equal(t, "+4915199999", got.To)
	assert.True(t, strings.HasPrefix(got.Body, "A customer in conversation +4915100000"))
}

func TestSMSChannel_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewSMSChannel(srv.URL, time.Second).Send(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=429")
}

func TestDashboardChannel_OneNoticePerEscalation(t *testing.T) {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&DashboardNotice{}))

	ch := NewDashboardChannel(db)
	ctx := context.Background()
	require.NoError(t, ch.Send(ctx, sample()))
	require.NoError(t, ch.Send(ctx, sample()))

	notices, err := ch.List(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "+4915100000", notices[0].ConversationID)
	assert.Len(t, notices[0].ID, 26)
}
