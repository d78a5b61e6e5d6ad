package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// GitHubHostname is the hostname of GitHub Cloud.
const GitHubHostname = "github.com"

// Platform distinguishes GitHub Cloud from self-hosted Enterprise Server.
type Platform string

const (
	PlatformCloud            Platform = "GitHub Cloud"
	PlatformEnterpriseServer Platform = "GitHub Enterprise Server"
)

// AuthMethod records how an account's token was obtained.
type AuthMethod string

const (
	MethodPersonalAccessToken AuthMethod = "Personal Access Token"
	MethodOAuthApp            AuthMethod = "OAuth App"
	MethodGitHubApp           AuthMethod = "GitHub App"
)

// User is the authenticated identity behind an account.
type User struct {
	ID        int64  `yaml:"id" json:"id"`
	Login     string `yaml:"login" json:"login"`
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	AvatarURL string `yaml:"avatar_url,omitempty" json:"avatar_url,omitempty"`
}

// Account is one authenticated GitHub identity on one host. Tokens are never
// stored here; they live in the OS keyring, keyed by the account UUID.
type Account struct {
	Hostname          string     `yaml:"hostname" json:"hostname"`
	Method            AuthMethod `yaml:"method" json:"method"`
	Platform          Platform   `yaml:"platform" json:"platform"`
	User              User       `yaml:"user" json:"user"`
	HasRequiredScopes bool       `yaml:"has_required_scopes" json:"has_required_scopes"`
	// ServerVersion is the Enterprise Server version, empty for cloud.
	ServerVersion string `yaml:"server_version,omitempty" json:"server_version,omitempty"`
}

// accountNamespace seeds deterministic account UUIDs.
var accountNamespace = uuid.MustParse("6b0430ba-9e28-4a8d-a817-d5e27b4a84c1")

// UUID derives a stable identifier from the account's hostname, user ID and
// auth method. Logging in again with the same identity yields the same UUID,
// so re-login replaces rather than duplicates.
func (a Account) UUID() string {
	name := fmt.Sprintf("%s-%d-%s", a.Hostname, a.User.ID, a.Method)
	return uuid.NewSHA1(accountNamespace, []byte(name)).String()
}

// IsEnterprise reports whether the account lives on an Enterprise Server host.
func (a Account) IsEnterprise() bool {
	return a.Platform == PlatformEnterpriseServer
}

var (
	markAsDoneMinVersion          = [2]int{3, 13}
	answeredDiscussionsMinVersion = [2]int{3, 12}
)

// IsMarkAsDoneSupported reports whether the host supports marking threads as
// done. Cloud always does; Enterprise Server gained it in 3.13.
func (a Account) IsMarkAsDoneSupported() bool {
	return a.supportsVersion(markAsDoneMinVersion)
}

// IsAnsweredDiscussionsSupported reports whether the host's GraphQL schema has
// the isAnswered discussion field, added to Enterprise Server in 3.12.
func (a Account) IsAnsweredDiscussionsSupported() bool {
	return a.supportsVersion(answeredDiscussionsMinVersion)
}

func (a Account) supportsVersion(min [2]int) bool {
	if !a.IsEnterprise() {
		return true
	}
	major, minor, ok := parseServerVersion(a.ServerVersion)
	if !ok {
		return false
	}
	if major != min[0] {
		return major > min[0]
	}
	return minor >= min[1]
}

func parseServerVersion(version string) (major, minor int, ok bool) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

// PlatformForHostname infers the platform from a hostname.
func PlatformForHostname(hostname string) Platform {
	if strings.EqualFold(hostname, GitHubHostname) {
		return PlatformCloud
	}
	return PlatformEnterpriseServer
}
