package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtomic/farewatch/internal/config"
	"github.com/jtomic/farewatch/pkg/logger"
)

func sampleDeal() Deal {
	return Deal{
		Route:         "SEA - SJC",
		Airline:       "Delta",
		Price:         250,
		TargetPrice:   275,
		Currency:      "USD",
		DurationMin:   330,
		Layovers:      1,
		LayoverInfo:   "PDX (2h 15m)",
		DepartureTime: "2025-06-19 06:00",
		ArrivalTime:   "2025-06-19 11:30",
		BookingLink:   "https://www.google.com/travel/flights/booking",
		SearchLink:    "https://www.google.com/travel/flights?q=flights+from+SEA+to+SJC+on+2025-06-19",
	}
}

func TestComposeSMSBody(t *testing.T) {
	body := ComposeSMSBody(sampleDeal())
	assert.Contains(t, body, "SEA - SJC")
	assert.Contains(t, body, "250 USD")
	assert.Contains(t, body, "target 275")
	assert.Contains(t, body, "travel/flights/booking")
}

func TestComposeEmailBody(t *testing.T) {
	body := ComposeEmailBody(sampleDeal())
	assert.Contains(t, body, "Delta")
	assert.Contains(t, body, "330 minutes")
	assert.Contains(t, body, "PDX (2h 15m)")
	assert.Contains(t, body, "2025-06-19 06:00")
	assert.Contains(t, body, "Book now")
}

func TestComposeEmailBody_NoLinks(t *testing.T) {
	deal := sampleDeal()
	deal.BookingLink = ""
	deal.SearchLink = ""
	body := ComposeEmailBody(deal)
	assert.NotContains(t, body, "Book now")
	assert.NotContains(t, body, "Explore more flights")
}

func TestChannelGating_MissingCredentialsDisables(t *testing.T) {
	n := New(
		config.EmailConfig{Enabled: true, SMTPHost: "smtp.example.com"}, // no sender/password
		config.SMSConfig{Enabled: true},                                // no credentials
		logger.Nop(),
	)
	assert.False(t, n.EmailEnabled())
	assert.False(t, n.SMSEnabled())

	// With nothing enabled, Send is a no-op that reports no failures.
	out := n.Send(context.Background(), sampleDeal(), "user@example.com", "+15550001111")
	assert.False(t, out.Failed())
	assert.False(t, out.EmailSent)
	assert.False(t, out.SMSSent)
}

func TestChannelGating_FlagOffDisables(t *testing.T) {
	n := New(
		config.EmailConfig{Enabled: false, SMTPHost: "smtp.example.com", Sender: "a@b.c", Password: "pw"},
		config.SMSConfig{Enabled: false, AccountSID: "AC1", AuthToken: "tok", FromNumber: "+15550009999"},
		logger.Nop(),
	)
	assert.False(t, n.EmailEnabled())
	assert.False(t, n.SMSEnabled())
}

func TestSendSMS_PostsToTwilio(t *testing.T) {
	var gotPath, gotTo, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		gotBody = r.PostForm.Get("Body")
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := New(
		config.EmailConfig{},
		config.SMSConfig{Enabled: true, AccountSID: "AC1", AuthToken: "tok", FromNumber: "+15550009999"},
		logger.Nop(),
	)
	n.smsBaseURL = srv.URL

	out := n.Send(context.Background(), sampleDeal(), "", "+15550001111")
	assert.True(t, out.SMSSent)
	assert.False(t, out.Failed())
	assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", gotPath)
	assert.Equal(t, "+15550001111", gotTo)
	assert.Contains(t, gotBody, "Flight deal alert!")
}

func TestSendSMS_FailureReturnedNotRaised(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(
		config.EmailConfig{},
		config.SMSConfig{Enabled: true, AccountSID: "AC1", AuthToken: "tok", FromNumber: "+15550009999"},
		logger.Nop(),
	)
	n.smsBaseURL = srv.URL

	out := n.Send(context.Background(), sampleDeal(), "", "+15550001111")
	assert.False(t, out.SMSSent)
	assert.True(t, out.Failed())
}
