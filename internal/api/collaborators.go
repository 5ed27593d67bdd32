package api

import (
	"context"
	"net/http"
	"net/url"

	"appcatalog/internal/catalog"
)

// =============================================================================
// ONBOARDING COLLABORATORS
// =============================================================================
// These are the backend calls the onboarding wizard and its search inputs use.

func termQuery(term string) url.Values {
	return url.Values{"q": []string{term}}
}

func appPath(appID, suffix string) string {
	return "/api/applications/" + url.PathEscape(appID) + suffix
}

// SearchApplications searches the CMDB for applications.
func (c *Client) SearchApplications(ctx context.Context, term string) ([]catalog.App, error) {
	return getList[catalog.App](ctx, c, "/api/cmdb/applications/search", termQuery(term))
}

// SearchProducts searches products by name.
func (c *Client) SearchProducts(ctx context.Context, term string) ([]catalog.Product, error) {
	return getList[catalog.Product](ctx, c, "/api/products/search", termQuery(term))
}

// GetServiceInstances lists the CMDB service instances of an application.
func (c *Client) GetServiceInstances(ctx context.Context, appID string) ([]catalog.ServiceInstance, error) {
	return getList[catalog.ServiceInstance](ctx, c, appPath(appID, "/service-instances"), nil)
}

// GetAvailableRepos lists GitLab repositories already associated with the application.
func (c *Client) GetAvailableRepos(ctx context.Context, appID string) ([]catalog.Repo, error) {
	repos, err := getList[catalog.Repo](ctx, c, appPath(appID, "/repos/available"), nil)
	return withSource(repos, catalog.RepoSourceGitLab), err
}

// GetAvailableBitbucketRepos lists Bitbucket repositories associated with the application.
func (c *Client) GetAvailableBitbucketRepos(ctx context.Context, appID string) ([]catalog.Repo, error) {
	repos, err := getList[catalog.Repo](ctx, c, appPath(appID, "/bitbucket/repos/available"), nil)
	return withSource(repos, catalog.RepoSourceBitbucket), err
}

func withSource(repos []catalog.Repo, src catalog.RepoSource) []catalog.Repo {
	for i := range repos {
		if repos[i].Source == "" {
			repos[i].Source = src
		}
	}
	return repos
}

// GetAvailableJiraProjects lists Jira projects associated with the application.
func (c *Client) GetAvailableJiraProjects(ctx context.Context, appID string) ([]catalog.JiraProject, error) {
	return getList[catalog.JiraProject](ctx, c, appPath(appID, "/jira/projects/available"), nil)
}

// SearchRepos looks up repositories for manual attachment.
func (c *Client) SearchRepos(ctx context.Context, term string) ([]catalog.Repo, error) {
	return getList[catalog.Repo](ctx, c, "/api/repos/search", termQuery(term))
}

// SearchJiraProjects looks up Jira projects for manual attachment.
func (c *Client) SearchJiraProjects(ctx context.Context, term string) ([]catalog.JiraProject, error) {
	return getList[catalog.JiraProject](ctx, c, "/api/jira/projects/search", termQuery(term))
}

type onboardingPayload struct {
	Apps []catalog.App `json:"apps"`
	catalog.OnboardingRequest
}

// CompleteOnboarding attaches the applications to the product together with the
// selected repositories, Jira projects and documentation.
func (c *Client) CompleteOnboarding(ctx context.Context, apps []catalog.App, req catalog.OnboardingRequest) (*catalog.Association, error) {
	var assoc catalog.Association
	payload := onboardingPayload{Apps: apps, OnboardingRequest: req}
	if err := c.Do(ctx, http.MethodPost, "/api/onboarding/complete", nil, payload, &assoc); err != nil {
		return nil, err
	}
	return &assoc, nil
}
