package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/gitify-app/gitify-sub003/config"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// mutationRecorder serves the thread mutation endpoints and records every
// request as "METHOD path".
type mutationRecorder struct {
	mu       sync.Mutex
	requests []string
	// failSubscription makes the subscription endpoint return 500.
	failSubscription bool
}

func (m *mutationRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.Method+" "+r.URL.Path)
	m.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/subscription"):
		if m.failSubscription {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message": "boom"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ignored": true}`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusResetContent)
	}
}

func (m *mutationRecorder) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// newMutationEngine builds an engine with a pre-seeded snapshot served by the
// given recorder.
func newMutationEngine(t *testing.T, settings config.Settings, acc model.Account, recorder *mutationRecorder, snapshot []model.AccountNotifications) *Engine {
	t.Helper()
	eng, _, _ := newTestEngine(t, settings, []model.Account{acc}, map[string]http.Handler{
		acc.UUID(): recorder,
	})
	eng.snapshot = snapshot
	eng.status = StatusSuccess
	return eng
}

func TestMarkAsReadRemovesFromSnapshot(t *testing.T) {
	acc := account("octocat", 1)
	recorder := &mutationRecorder{}
	eng := newMutationEngine(t, testSettings(), acc, recorder,
		[]model.AccountNotifications{notifications(acc, "1", "2")})

	target := eng.Snapshot()[0].Notifications[0]
	if err := eng.MarkAsRead(context.Background(), []model.Notification{target}); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	got := recorder.recorded()
	if len(got) != 1 || got[0] != "PATCH /notifications/threads/1" {
		t.Errorf("requests = %v", got)
	}

	remaining := eng.Snapshot()[0].Notifications
	if len(remaining) != 1 || remaining[0].ID != "2" {
		t.Errorf("remaining = %+v, want only thread 2", remaining)
	}
}

func TestMarkAsReadKeepsWhenFetchingReadNotifications(t *testing.T) {
	settings := testSettings()
	settings.FetchReadNotifications = true

	acc := account("octocat", 1)
	eng := newMutationEngine(t, settings, acc, &mutationRecorder{},
		[]model.AccountNotifications{notifications(acc, "1", "2")})

	target := eng.Snapshot()[0].Notifications[0]
	if err := eng.MarkAsRead(context.Background(), []model.Notification{target}); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	remaining := eng.Snapshot()[0].Notifications
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want both kept", len(remaining))
	}
	if remaining[0].Unread {
		t.Error("acted-on notification still unread")
	}
	if !remaining[1].Unread {
		t.Error("untouched notification flipped to read")
	}
}

func TestMarkAsReadKeepsWhenDelayingState(t *testing.T) {
	settings := testSettings()
	settings.DelayNotificationState = true

	acc := account("octocat", 1)
	eng := newMutationEngine(t, settings, acc, &mutationRecorder{},
		[]model.AccountNotifications{notifications(acc, "1")})

	target := eng.Snapshot()[0].Notifications[0]
	if err := eng.MarkAsRead(context.Background(), []model.Notification{target}); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	remaining := eng.Snapshot()[0].Notifications
	if len(remaining) != 1 || remaining[0].Unread {
		t.Errorf("remaining = %+v, want kept and read", remaining)
	}
}

func TestMarkAsDoneUsesDeleteOnCloud(t *testing.T) {
	acc := account("octocat", 1)
	recorder := &mutationRecorder{}
	eng := newMutationEngine(t, testSettings(), acc, recorder,
		[]model.AccountNotifications{notifications(acc, "1")})

	target := eng.Snapshot()[0].Notifications[0]
	if err := eng.MarkAsDone(context.Background(), []model.Notification{target}); err != nil {
		t.Fatalf("MarkAsDone: %v", err)
	}

	got := recorder.recorded()
	if len(got) != 1 || got[0] != "DELETE /notifications/threads/1" {
		t.Errorf("requests = %v", got)
	}
}

func TestMarkAsDoneFallsBackToReadOnOldEnterprise(t *testing.T) {
	acc := model.Account{
		Hostname:      "github.corp.example.com",
		Method:        model.MethodPersonalAccessToken,
		Platform:      model.PlatformEnterpriseServer,
		ServerVersion: "3.12.4",
		User:          model.User{ID: 1, Login: "octocat"},
	}
	recorder := &mutationRecorder{}
	eng := newMutationEngine(t, testSettings(), acc, recorder,
		[]model.AccountNotifications{notifications(acc, "1")})

	target := eng.Snapshot()[0].Notifications[0]
	if err := eng.MarkAsDone(context.Background(), []model.Notification{target}); err != nil {
		t.Fatalf("MarkAsDone: %v", err)
	}

	got := recorder.recorded()
	if len(got) != 1 || got[0] != "PATCH /notifications/threads/1" {
		t.Errorf("requests = %v, want read fallback", got)
	}
}

func TestUnsubscribeMutesBeforeMarkingRead(t *testing.T) {
	acc := account("octocat", 1)
	recorder := &mutationRecorder{}
	eng := newMutationEngine(t, testSettings(), acc, recorder,
		[]model.AccountNotifications{notifications(acc, "1")})

	target := eng.Snapshot()[0].Notifications[0]
	if err := eng.Unsubscribe(context.Background(), []model.Notification{target}); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	want := []string{
		"PUT /notifications/threads/1/subscription",
		"PATCH /notifications/threads/1",
	}
	got := recorder.recorded()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("requests = %v, want %v", got, want)
	}
}

func TestUnsubscribeMarksDonePerSettings(t *testing.T) {
	settings := testSettings()
	settings.MarkAsDoneOnUnsubscribe = true

	acc := account("octocat", 1)
	recorder := &mutationRecorder{}
	eng := newMutationEngine(t, settings, acc, recorder,
		[]model.AccountNotifications{notifications(acc, "1")})

	target := eng.Snapshot()[0].Notifications[0]
	if err := eng.Unsubscribe(context.Background(), []model.Notification{target}); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	got := recorder.recorded()
	if len(got) != 2 || got[1] != "DELETE /notifications/threads/1" {
		t.Errorf("requests = %v, want done follow-up", got)
	}
}

func TestUnsubscribeFailureLeavesNotificationIntact(t *testing.T) {
	acc := account("octocat", 1)
	recorder := &mutationRecorder{failSubscription: true}
	eng := newMutationEngine(t, testSettings(), acc, recorder,
		[]model.AccountNotifications{notifications(acc, "1")})

	target := eng.Snapshot()[0].Notifications[0]
	err := eng.Unsubscribe(context.Background(), []model.Notification{target})
	if err == nil {
		t.Fatal("Unsubscribe should surface the failure")
	}

	got := recorder.recorded()
	if len(got) != 1 {
		t.Errorf("requests = %v, want no follow-up after failed mute", got)
	}
	remaining := eng.Snapshot()[0].Notifications
	if len(remaining) != 1 || !remaining[0].Unread {
		t.Errorf("remaining = %+v, want untouched", remaining)
	}
}

func TestMutatePartialFailure(t *testing.T) {
	acc := account("octocat", 1)
	recorder := &mutationRecorder{failSubscription: true}
	eng := newMutationEngine(t, testSettings(), acc, recorder,
		[]model.AccountNotifications{notifications(acc, "1", "2")})

	snapshot := eng.Snapshot()[0].Notifications
	// Unsubscribe fails for every thread here, while a plain mark-as-read
	// succeeds; mixing the two shows one failure not blocking the other.
	if err := eng.Unsubscribe(context.Background(), snapshot[:1]); err == nil {
		t.Fatal("expected unsubscribe failure")
	}
	if err := eng.MarkAsRead(context.Background(), snapshot[1:]); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	remaining := eng.Snapshot()[0].Notifications
	if len(remaining) != 1 || remaining[0].ID != "1" {
		t.Errorf("remaining = %+v, want only the failed thread", remaining)
	}
}

func TestMarkRepositoryAsRead(t *testing.T) {
	acc := account("octocat", 1)
	recorder := &mutationRecorder{}

	repoA := model.Repository{Name: "hello-world", FullName: "octocat/hello-world", Owner: "octocat"}
	repoB := model.Repository{Name: "other", FullName: "octocat/other", Owner: "octocat"}
	snapshot := []model.AccountNotifications{{
		Account: acc,
		Notifications: []model.Notification{
			{ID: "1", Account: acc, Unread: true, Repository: repoA},
			{ID: "2", Account: acc, Unread: true, Repository: repoB},
			{ID: "3", Account: acc, Unread: true, Repository: repoA},
		},
	}}
	eng := newMutationEngine(t, testSettings(), acc, recorder, snapshot)

	if err := eng.MarkRepositoryAsRead(context.Background(), acc, repoA); err != nil {
		t.Fatalf("MarkRepositoryAsRead: %v", err)
	}

	got := recorder.recorded()
	if len(got) != 1 || got[0] != "PUT /repos/octocat/hello-world/notifications" {
		t.Errorf("requests = %v", got)
	}

	remaining := eng.Snapshot()[0].Notifications
	if len(remaining) != 1 || remaining[0].ID != "2" {
		t.Errorf("remaining = %+v, want only the other repository's thread", remaining)
	}
}
