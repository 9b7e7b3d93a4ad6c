package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("accept_offer", "applied")
		m.IncSettlements()
		m.IncMessages(true)
		m.IncRelayFailures()
		m.AddLiveSubscriptions(1)
		m.IncDeliveries()
		m.IncSlowSubscribers()
	})
}

func TestCollectorsAndHandler(t *testing.T) {
	m := New()
	m.ObserveTransition("confirm_receipt", "applied")
	m.ObserveTransition("confirm_receipt", "noop")
	m.ObserveTransition("confirm_receipt", "noop")
	m.IncMessages(false)
	m.IncMessages(true)
	m.AddLiveSubscriptions(2)
	m.AddLiveSubscriptions(-1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `loops_listing_transitions_total{kind="confirm_receipt",result="noop"} 2`)
	assert.Contains(t, body, `loops_messages_appended_total{author="system"} 1`)
	assert.Contains(t, body, "loops_live_subscriptions 1")
}
