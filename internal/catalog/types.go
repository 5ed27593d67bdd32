// Package catalog holds the value records shared by the API client, the onboarding
// wizard and the console views. They mirror the backend resource shapes.
package catalog

import "time"

// RepoSource identifies where a repository reference came from.
type RepoSource string

const (
	RepoSourceGitLab    RepoSource = "gitlab"
	RepoSourceBitbucket RepoSource = "bitbucket"
	RepoSourceManual    RepoSource = "manual"
)

// App is a CMDB application.
type App struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	ShortName   string    `json:"shortName,omitempty" yaml:"short_name,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Owner       string    `json:"owner,omitempty" yaml:"owner,omitempty"`
	Criticality string    `json:"criticality,omitempty" yaml:"criticality,omitempty"`
	Status      string    `json:"status,omitempty" yaml:"status,omitempty"`
	IsOnboarded bool      `json:"isOnboarded" yaml:"is_onboarded"` // already attached to at least one product
	Products    []Product `json:"products,omitempty" yaml:"products,omitempty"`
}

// DisplayName returns the short name when present, otherwise the full name.
func (a App) DisplayName() string {
	if a.ShortName != "" {
		return a.ShortName
	}
	return a.Name
}

// Product groups applications under a single owner.
type Product struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Owner       string `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// Repo is a source repository reference.
type Repo struct {
	ID            string     `json:"id" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	Slug          string     `json:"slug,omitempty" yaml:"slug,omitempty"`
	URL           string     `json:"url,omitempty" yaml:"url,omitempty"`
	Source        RepoSource `json:"source,omitempty" yaml:"source,omitempty"`
	DefaultBranch string     `json:"defaultBranch,omitempty" yaml:"default_branch,omitempty"`
}

// JiraProject is a Jira project reference, identified by its key.
type JiraProject struct {
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
	Lead string `json:"lead,omitempty" yaml:"lead,omitempty"`
}

// ServiceInstance is a CMDB service instance of an application.
type ServiceInstance struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Role        string `json:"role,omitempty" yaml:"role,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// DocEntry links one required document type to its location.
type DocEntry struct {
	Type DocType `json:"type" yaml:"type"`
	URL  string  `json:"url" yaml:"url"`
}

// OnboardingRequest is the payload of the terminal onboarding call.
type OnboardingRequest struct {
	ProductID     string        `json:"productId"`
	ProductName   string        `json:"productName"`
	Repos         []Repo        `json:"repos"`
	JiraProjects  []JiraProject `json:"jiraProjects"`
	Documentation []DocEntry    `json:"documentation"`
}

// Association is the backend record created by a completed onboarding.
type Association struct {
	ID            string        `json:"id"`
	ProductID     string        `json:"productId"`
	ProductName   string        `json:"productName"`
	AppIDs        []string      `json:"appIds"`
	Repos         []Repo        `json:"repos,omitempty"`
	JiraProjects  []JiraProject `json:"jiraProjects,omitempty"`
	Documentation []DocEntry    `json:"documentation,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}
