package api

import (
	"fmt"
	"strings"

	"github.com/gitify-app/gitify-sub003/internal/model"
)

// APIBaseURL returns the REST API root for a GitHub host. Cloud traffic goes
// to api.github.com while Enterprise Server hosts serve the API under
// /api/v3/. The trailing slash is part of the contract; thread and repository
// paths are appended directly.
func APIBaseURL(hostname string) string {
	if isCloudHost(hostname) {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", hostname)
}

// GraphQLURL returns the GraphQL endpoint for a GitHub host. Enterprise
// Server serves GraphQL under /api/graphql rather than /graphql.
func GraphQLURL(hostname string) string {
	if isCloudHost(hostname) {
		return "https://api.github.com/graphql"
	}
	return fmt.Sprintf("https://%s/api/graphql", hostname)
}

// AuthBaseURL returns the web root used for OAuth authorization flows.
func AuthBaseURL(hostname string) string {
	return fmt.Sprintf("https://%s/", hostname)
}

func isCloudHost(hostname string) bool {
	h := strings.ToLower(hostname)
	return h == model.GitHubHostname || h == "api."+model.GitHubHostname
}
