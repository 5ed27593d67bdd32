package catalog

// =============================================================================
// GOVERNANCE RESOURCES
// =============================================================================
// These records back the plain list/create/edit/delete screens. Each one maps to
// a single REST collection; see api.Collections.

// Contact is a named person attached to an application or product.
type Contact struct {
	ID        string `json:"id"`
	AppID     string `json:"appId,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Backlog links an application to a work tracker board.
type Backlog struct {
	ID         string `json:"id"`
	AppID      string `json:"appId"`
	ProjectKey string `json:"projectKey"`
	Name       string `json:"name,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Document is a stored documentation link.
type Document struct {
	ID        string  `json:"id"`
	AppID     string  `json:"appId,omitempty"`
	ProductID string  `json:"productId,omitempty"`
	Type      DocType `json:"type"`
	Title     string  `json:"title,omitempty"`
	URL       string  `json:"url"`
}

// RiskStory captures a known risk and its mitigation.
type RiskStory struct {
	ID         string `json:"id"`
	AppID      string `json:"appId"`
	Title      string `json:"title"`
	Severity   string `json:"severity,omitempty"`
	Status     string `json:"status,omitempty"`
	Mitigation string `json:"mitigation,omitempty"`
}

// BusinessOutcome is a measurable goal a product contributes to.
type BusinessOutcome struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Metric      string `json:"metric,omitempty"`
	Target      string `json:"target,omitempty"`
}

// GuildSME is a subject matter expert from a guild assigned to an application.
type GuildSME struct {
	ID    string `json:"id"`
	AppID string `json:"appId"`
	Guild string `json:"guild"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Deployment records a release of an application to an environment.
type Deployment struct {
	ID          string `json:"id"`
	AppID       string `json:"appId"`
	Environment string `json:"environment"`
	Version     string `json:"version,omitempty"`
	Status      string `json:"status,omitempty"`
	DeployedAt  string `json:"deployedAt,omitempty"`
}
