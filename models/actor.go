package models

// Actor kinds
const (
	ActorUser  = "USER"
	ActorAdmin = "ADMIN"
)

// Actor is the resolved identity behind a request. It is derived from a
// verified token per request and never persisted. Admin identities carry
// their own kind tag; user-keyed lookups must check Kind explicitly
// instead of relying on any id convention.
type Actor struct {
	Kind  string `json:"kind"`
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

func (a Actor) IsAdmin() bool {
	return a.Kind == ActorAdmin
}
