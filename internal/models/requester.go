package models

// Requester identifies who is asking on a chat or knowledge operation.
// It is a closed union of two shapes: an authenticated client, whose client
// ID is the tenant key, or an unauthenticated caller that declares a company
// ID explicitly. Construct values with AuthenticatedRequester or
// UnauthenticatedRequester; the zero value has no company and fails
// validation upstream.
type Requester struct {
	authenticated     bool
	clientID          string
	companyName       string
	declaredCompanyID string
}

// AuthenticatedRequester builds a requester from verified client identity.
func AuthenticatedRequester(clientID, companyName string) Requester {
	return Requester{
		authenticated: true,
		clientID:      clientID,
		companyName:   companyName,
	}
}

// UnauthenticatedRequester builds a requester from a caller-declared
// company ID, trusted only for tenant scoping.
func UnauthenticatedRequester(companyID string) Requester {
	return Requester{declaredCompanyID: companyID}
}

// IsAuthenticated reports whether the requester carries verified identity.
func (r Requester) IsAuthenticated() bool {
	return r.authenticated
}

// CompanyID returns the tenant key all storage and retrieval is scoped by.
func (r Requester) CompanyID() string {
	if r.authenticated {
		return r.clientID
	}
	return r.declaredCompanyID
}

// CompanyName returns a display name for response templates. Unauthenticated
// requesters fall back to their declared company ID.
func (r Requester) CompanyName() string {
	if r.authenticated && r.companyName != "" {
		return r.companyName
	}
	return r.declaredCompanyID
}
