package catalog

// DocType is one of the governance documents every onboarded application must link.
type DocType string

const (
	DocProductVision      DocType = "Product Vision"
	DocProductRoadmap     DocType = "Product Roadmap"
	DocArchitectureVision DocType = "Architecture Vision"
	DocServiceVision      DocType = "Service Vision"
	DocSecurityVision     DocType = "Security Vision"
	DocTestStrategy       DocType = "Test Strategy"
)

var requiredDocTypes = []DocType{
	DocProductVision,
	DocProductRoadmap,
	DocArchitectureVision,
	DocServiceVision,
	DocSecurityVision,
	DocTestStrategy,
}

// RequiredDocTypes returns the closed set of required document types in display order.
func RequiredDocTypes() []DocType {
	out := make([]DocType, len(requiredDocTypes))
	copy(out, requiredDocTypes)
	return out
}

// RequiredDocCount is the number of document entries the docs step needs.
func RequiredDocCount() int {
	return len(requiredDocTypes)
}

// IsRequiredDocType reports whether t belongs to the required set.
func IsRequiredDocType(t DocType) bool {
	for _, r := range requiredDocTypes {
		if r == t {
			return true
		}
	}
	return false
}
