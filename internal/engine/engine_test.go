package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gitify-app/gitify-sub003/config"
	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/auth"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

type sinkRecorder struct {
	titles []string
	bodies []string
	sounds int
}

func (s *sinkRecorder) RaiseNativeNotification(title, body, url string) {
	s.titles = append(s.titles, title)
	s.bodies = append(s.bodies, body)
}

func (s *sinkRecorder) RaiseSound() {
	s.sounds++
}

type trayRecorder struct {
	icons  []int
	titles []string
}

func (t *trayRecorder) UpdateIcon(unread int)     { t.icons = append(t.icons, unread) }
func (t *trayRecorder) UpdateTitle(title string)  { t.titles = append(t.titles, title) }
func (t *trayRecorder) lastIcon() int {
	if len(t.icons) == 0 {
		return 0
	}
	return t.icons[len(t.icons)-1]
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.DetailedNotifications = false
	s.FetchAllNotifications = false
	return s
}

// newTestEngine builds an engine whose accounts are served by the given
// handlers, keyed by account UUID.
func newTestEngine(t *testing.T, settings config.Settings, accounts []model.Account, handlers map[string]http.Handler) (*Engine, *sinkRecorder, *trayRecorder) {
	t.Helper()

	servers := map[string]*httptest.Server{}
	for uuid, handler := range handlers {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		servers[uuid] = srv
	}

	cfg := &config.Config{Settings: settings, Accounts: accounts}
	registry := auth.NewRegistry(cfg)
	sink := &sinkRecorder{}
	trayRec := &trayRecorder{}

	eng := New(cfg, registry, sink, trayRec)
	eng.newClient = func(account model.Account) (*api.Client, error) {
		srv, ok := servers[account.UUID()]
		if !ok {
			return nil, fmt.Errorf("no server for account %s", account.User.Login)
		}
		return api.NewClientWithEndpoints(account, srv.Client(), srv.URL+"/", srv.URL+"/graphql")
	}
	return eng, sink, trayRec
}

func notificationsHandler(t *testing.T, payloads ...string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[")
		for i, p := range payloads {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprint(w, p)
		}
		fmt.Fprint(w, "]")
	})
}

func failingHandler(status int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"message": %q}`, message)
	})
}

func threadJSON(id, title string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"unread": true,
		"reason": "mention",
		"updated_at": "2026-08-01T10:00:00Z",
		"url": "https://api.github.com/notifications/threads/%s",
		"repository": {
			"id": 1,
			"name": "hello-world",
			"full_name": "octocat/hello-world",
			"html_url": "https://github.com/octocat/hello-world",
			"owner": {"login": "octocat"}
		},
		"subject": {"title": %q, "type": "Commit"}
	}`, id, id, title)
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	acc := account("octocat", 1)
	eng, _, trayRec := newTestEngine(t, testSettings(), []model.Account{acc}, map[string]http.Handler{
		acc.UUID(): notificationsHandler(t, threadJSON("1", "first"), threadJSON("2", "second")),
	})

	eng.Refresh(context.Background())

	if eng.Status() != StatusSuccess {
		t.Errorf("status = %v, want success", eng.Status())
	}
	snapshot := eng.Snapshot()
	if len(snapshot) != 1 || len(snapshot[0].Notifications) != 2 {
		t.Fatalf("snapshot = %+v", snapshot)
	}
	if trayRec.lastIcon() != 2 {
		t.Errorf("tray unread = %d, want 2", trayRec.lastIcon())
	}
}

func TestRefreshTriggersForSingleNewNotification(t *testing.T) {
	acc := account("octocat", 1)
	eng, sink, _ := newTestEngine(t, testSettings(), []model.Account{acc}, map[string]http.Handler{
		acc.UUID(): notificationsHandler(t, threadJSON("1", "Fix the widget")),
	})

	eng.Refresh(context.Background())

	if len(sink.titles) != 1 {
		t.Fatalf("native notifications = %d, want 1", len(sink.titles))
	}
	if sink.titles[0] != "octocat/hello-world" {
		t.Errorf("title = %q, want repository name", sink.titles[0])
	}
	if sink.bodies[0] != "Fix the widget" {
		t.Errorf("body = %q, want subject title", sink.bodies[0])
	}
	if sink.sounds != 1 {
		t.Errorf("sounds = %d, want 1", sink.sounds)
	}
}

func TestRefreshCollapsesMultipleNewNotifications(t *testing.T) {
	acc := account("octocat", 1)
	eng, sink, _ := newTestEngine(t, testSettings(), []model.Account{acc}, map[string]http.Handler{
		acc.UUID(): notificationsHandler(t, threadJSON("1", "a"), threadJSON("2", "b"), threadJSON("3", "c")),
	})

	eng.Refresh(context.Background())

	if len(sink.bodies) != 1 || sink.bodies[0] != "You have 3 notifications." {
		t.Errorf("bodies = %v, want collapsed count", sink.bodies)
	}
}

func TestRefreshDoesNotRetrigger(t *testing.T) {
	acc := account("octocat", 1)
	eng, sink, _ := newTestEngine(t, testSettings(), []model.Account{acc}, map[string]http.Handler{
		acc.UUID(): notificationsHandler(t, threadJSON("1", "same")),
	})

	eng.Refresh(context.Background())
	eng.Refresh(context.Background())

	if len(sink.titles) != 1 {
		t.Errorf("native notifications = %d, want 1 (no retrigger for seen threads)", len(sink.titles))
	}
}

func TestRefreshRespectsTriggerSettings(t *testing.T) {
	settings := testSettings()
	settings.ShowNotifications = false
	settings.PlaySound = false

	acc := account("octocat", 1)
	eng, sink, _ := newTestEngine(t, settings, []model.Account{acc}, map[string]http.Handler{
		acc.UUID(): notificationsHandler(t, threadJSON("1", "quiet")),
	})

	eng.Refresh(context.Background())

	if len(sink.titles) != 0 || sink.sounds != 0 {
		t.Errorf("triggers raised despite settings: titles=%v sounds=%d", sink.titles, sink.sounds)
	}
}

func TestRefreshPartialFailureIsSuccess(t *testing.T) {
	accA := account("octocat", 1)
	accB := account("hubot", 2)
	eng, _, trayRec := newTestEngine(t, testSettings(), []model.Account{accA, accB}, map[string]http.Handler{
		accA.UUID(): notificationsHandler(t, threadJSON("1", "fine")),
		accB.UUID(): failingHandler(500, "boom"),
	})

	eng.Refresh(context.Background())

	if eng.Status() != StatusSuccess {
		t.Errorf("status = %v, want success with partial failure", eng.Status())
	}
	snapshot := eng.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("snapshot accounts = %d", len(snapshot))
	}
	if snapshot[0].Error != nil {
		t.Errorf("healthy account has error: %v", snapshot[0].Error)
	}
	if snapshot[1].Error == nil {
		t.Error("failing account has no error")
	}
	if eng.GlobalError() != nil {
		t.Errorf("global error = %v, want nil", eng.GlobalError())
	}
	if trayRec.lastIcon() != 1 {
		t.Errorf("tray unread = %d, want healthy account's 1", trayRec.lastIcon())
	}
}

func TestRefreshAllFailedSameKind(t *testing.T) {
	accA := account("octocat", 1)
	accB := account("hubot", 2)
	eng, _, trayRec := newTestEngine(t, testSettings(), []model.Account{accA, accB}, map[string]http.Handler{
		accA.UUID(): failingHandler(401, "Bad credentials"),
		accB.UUID(): failingHandler(401, "Bad credentials"),
	})

	eng.Refresh(context.Background())

	if eng.Status() != StatusError {
		t.Errorf("status = %v, want error", eng.Status())
	}
	globalErr := eng.GlobalError()
	if globalErr == nil {
		t.Fatal("global error missing when all accounts fail the same way")
	}
	if kind := api.KindOf(globalErr); kind != api.KindBadCredentials {
		t.Errorf("global error kind = %v, want bad credentials", kind)
	}
	if trayRec.lastIcon() != -1 {
		t.Errorf("tray icon = %d, want error state", trayRec.lastIcon())
	}
}

func TestRefreshAllFailedMixedKinds(t *testing.T) {
	accA := account("octocat", 1)
	accB := account("hubot", 2)
	eng, _, _ := newTestEngine(t, testSettings(), []model.Account{accA, accB}, map[string]http.Handler{
		accA.UUID(): failingHandler(401, "Bad credentials"),
		accB.UUID(): failingHandler(500, "boom"),
	})

	eng.Refresh(context.Background())

	if eng.Status() != StatusError {
		t.Errorf("status = %v, want error", eng.Status())
	}
	if eng.GlobalError() != nil {
		t.Errorf("global error = %v, want nil for mixed kinds", eng.GlobalError())
	}
}

func TestRefreshWithNoAccountsIsIdle(t *testing.T) {
	eng, sink, _ := newTestEngine(t, testSettings(), nil, nil)

	eng.Refresh(context.Background())

	if eng.Status() != StatusIdle {
		t.Errorf("status = %v, want idle", eng.Status())
	}
	if len(sink.titles) != 0 {
		t.Errorf("triggers raised with no accounts: %v", sink.titles)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	acc := account("octocat", 1)
	eng, _, _ := newTestEngine(t, testSettings(), []model.Account{acc}, map[string]http.Handler{
		acc.UUID(): notificationsHandler(t, threadJSON("1", "a")),
	})
	eng.Refresh(context.Background())

	first := eng.Snapshot()
	first[0].Notifications[0].Unread = false

	second := eng.Snapshot()
	if !second[0].Notifications[0].Unread {
		t.Error("mutating a snapshot copy leaked into engine state")
	}
}

func TestAggregateStatus(t *testing.T) {
	acc := account("octocat", 1)
	failed := func(kind api.ErrorKind) model.AccountNotifications {
		return model.AccountNotifications{
			Account: acc,
			Error:   &api.Error{Kind: kind, Op: "test", Err: fmt.Errorf("x")},
		}
	}
	healthy := model.AccountNotifications{Account: acc}

	tests := []struct {
		name       string
		snapshot   []model.AccountNotifications
		wantStatus Status
		wantGlobal bool
	}{
		{"all healthy", []model.AccountNotifications{healthy, healthy}, StatusSuccess, false},
		{"partial", []model.AccountNotifications{healthy, failed(api.KindNetwork)}, StatusSuccess, false},
		{"all failed same kind", []model.AccountNotifications{failed(api.KindNetwork), failed(api.KindNetwork)}, StatusError, true},
		{"all failed mixed", []model.AccountNotifications{failed(api.KindNetwork), failed(api.KindRateLimited)}, StatusError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, globalErr := aggregateStatus(tt.snapshot)
			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if (globalErr != nil) != tt.wantGlobal {
				t.Errorf("globalErr = %v, wantGlobal %v", globalErr, tt.wantGlobal)
			}
		})
	}
}

func TestRunPollsOnInterval(t *testing.T) {
	settings := testSettings()
	settings.FetchInterval = 20 * time.Millisecond

	acc := account("octocat", 1)
	var refreshes int
	eng, _, _ := newTestEngine(t, settings, []model.Account{acc}, map[string]http.Handler{
		acc.UUID(): http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			refreshes++
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, "[]")
		}),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()
	eng.Run(ctx)

	if refreshes < 2 {
		t.Errorf("refreshes = %d, want at least the immediate one plus a tick", refreshes)
	}
}
