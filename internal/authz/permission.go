// Package authz defines the permission model carried inside access tokens
// and the request-scoped principal reconstructed from verified claims.
package authz

// Permission ties a resource (e.g. "posts") to the actions a principal may
// perform on it.
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// Principal is the authenticated identity attached to a request. It is
// rebuilt from the access token on every request and never persisted.
type Principal struct {
	UserID      string
	Email       string
	Status      string
	Permissions []Permission
}

// Has reports whether the principal carries the given resource/action pair.
func (p Principal) Has(resource, action string) bool {
	for _, perm := range p.Permissions {
		if perm.Resource != resource {
			continue
		}
		for _, a := range perm.Actions {
			if a == action {
				return true
			}
		}
	}
	return false
}

// DefaultPermissions is embedded into every access token at login and
// refresh. Keeping permissions in the token avoids a database round-trip in
// the guard; changes take effect only after the access TTL elapses.
var DefaultPermissions = []Permission{
	{Resource: "posts", Actions: []string{"create", "read", "update", "delete"}},
	{Resource: "user", Actions: []string{"read", "update"}},
	{Resource: "conversations", Actions: []string{"read", "create", "update"}},
	{Resource: "messages", Actions: []string{"read", "create"}},
}
