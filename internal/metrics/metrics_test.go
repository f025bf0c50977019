package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.CodeGenerated("join")
	m.CodeGenerated("join")
	m.CodeGenerated("short")
	m.JoinAttempt(JoinJoined)
	m.JoinAttempt(JoinNoGroup)
	m.NotificationFailed("member_joined")
	m.RPCHandled("/groupcal.v1.GroupService/JoinGroup", "ok")

	if got := testutil.ToFloat64(m.codesGenerated.WithLabelValues("join")); got != 2 {
		t.Errorf("join codes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.codesGenerated.WithLabelValues("short")); got != 1 {
		t.Errorf("short codes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.joins.WithLabelValues(JoinJoined)); got != 1 {
		t.Errorf("joined = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.notificationFailures.WithLabelValues("member_joined")); got != 1 {
		t.Errorf("notification failures = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CodeGenerated("join")
	m.JoinAttempt(JoinJoined)
	m.NotificationFailed("group_joined")
	m.RPCHandled("p", "ok")
}

func TestHandler(t *testing.T) {
	m := New()
	m.JoinAttempt(JoinAlreadyMember)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	want := `groupcal_group_join_attempts_total{outcome="already_member"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q", want)
	}
}
