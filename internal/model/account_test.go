package model

import "testing"

func cloudAccount() Account {
	return Account{
		Hostname: "github.com",
		Method:   MethodPersonalAccessToken,
		Platform: PlatformCloud,
		User:     User{ID: 123456, Login: "octocat"},
	}
}

func enterpriseAccount(version string) Account {
	return Account{
		Hostname:      "github.example.com",
		Method:        MethodPersonalAccessToken,
		Platform:      PlatformEnterpriseServer,
		User:          User{ID: 123456, Login: "octocat"},
		ServerVersion: version,
	}
}

func TestAccountUUIDStable(t *testing.T) {
	a := cloudAccount()
	b := cloudAccount()
	if a.UUID() != b.UUID() {
		t.Errorf("same identity produced different UUIDs: %s vs %s", a.UUID(), b.UUID())
	}
}

func TestAccountUUIDDistinguishes(t *testing.T) {
	base := cloudAccount()

	differentHost := cloudAccount()
	differentHost.Hostname = "github.example.com"

	differentUser := cloudAccount()
	differentUser.User.ID = 999

	differentMethod := cloudAccount()
	differentMethod.Method = MethodOAuthApp

	sameButRenamed := cloudAccount()
	sameButRenamed.User.Login = "renamed"

	if base.UUID() == differentHost.UUID() {
		t.Error("hostname change should change UUID")
	}
	if base.UUID() == differentUser.UUID() {
		t.Error("user id change should change UUID")
	}
	if base.UUID() == differentMethod.UUID() {
		t.Error("method change should change UUID")
	}
	if base.UUID() != sameButRenamed.UUID() {
		t.Error("login rename should not change UUID; identity is the numeric id")
	}
}

func TestIsMarkAsDoneSupported(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		want    bool
	}{
		{"cloud", cloudAccount(), true},
		{"enterprise at minimum", enterpriseAccount("3.13.0"), true},
		{"enterprise above minimum", enterpriseAccount("3.14.2"), true},
		{"enterprise next major", enterpriseAccount("4.0.0"), true},
		{"enterprise below minimum", enterpriseAccount("3.12.7"), false},
		{"enterprise unknown version", enterpriseAccount(""), false},
		{"enterprise garbage version", enterpriseAccount("latest"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.IsMarkAsDoneSupported(); got != tt.want {
				t.Errorf("IsMarkAsDoneSupported() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAnsweredDiscussionsSupported(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		want    bool
	}{
		{"cloud", cloudAccount(), true},
		{"enterprise 3.12", enterpriseAccount("3.12.0"), true},
		{"enterprise 3.11", enterpriseAccount("3.11.9"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.IsAnsweredDiscussionsSupported(); got != tt.want {
				t.Errorf("IsAnsweredDiscussionsSupported() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlatformForHostname(t *testing.T) {
	if got := PlatformForHostname("github.com"); got != PlatformCloud {
		t.Errorf("github.com = %v", got)
	}
	if got := PlatformForHostname("GitHub.com"); got != PlatformCloud {
		t.Errorf("GitHub.com = %v", got)
	}
	if got := PlatformForHostname("github.example.com"); got != PlatformEnterpriseServer {
		t.Errorf("github.example.com = %v", got)
	}
}

func TestNotificationCounts(t *testing.T) {
	snapshot := []AccountNotifications{
		{
			Account: cloudAccount(),
			Notifications: []Notification{
				{ID: "1", Unread: true},
				{ID: "2", Unread: false},
			},
		},
		{
			Account: enterpriseAccount("3.14.0"),
			Notifications: []Notification{
				{ID: "1", Unread: true},
			},
		},
	}

	if got := NotificationCount(snapshot); got != 3 {
		t.Errorf("NotificationCount = %d, want 3", got)
	}
	if got := UnreadNotificationCount(snapshot); got != 2 {
		t.Errorf("UnreadNotificationCount = %d, want 2", got)
	}
}
