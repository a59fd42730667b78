// Package identity answers who is acting on a discussion and what they may
// do. The store consults a Gate before every mutation; views use the same
// answers to disable affordances with a reason instead of attempting calls
// that would fail.
package identity

import "github.com/threadkit/pkg/thread"

// Gate is the identity/authorization collaborator consumed by the store.
type Gate interface {
	// Identity returns the acting user, or nil when nobody is signed in.
	Identity() *thread.Actor
	// IsEligible reports whether the actor may mutate the discussion at all.
	IsEligible() bool
	// IsAdmin reports whether the actor has administrative rights
	// (may delete others' comments).
	IsAdmin() bool
}

// CanEdit reports whether the gate's actor may edit content authored by
// authorHandle. Editing is author-only regardless of admin rights.
func CanEdit(g Gate, authorHandle string) bool {
	actor := g.Identity()
	return g.IsEligible() && actor != nil && actor.Handle == authorHandle
}

// CanDelete reports whether the gate's actor may delete content authored by
// authorHandle. Admins may delete anything; everyone else only their own.
func CanDelete(g Gate, authorHandle string) bool {
	actor := g.Identity()
	if !g.IsEligible() || actor == nil {
		return false
	}
	return g.IsAdmin() || actor.Handle == authorHandle
}

// StaticGate is a fixed-answer gate for embedding and tests.
type StaticGate struct {
	Actor    *thread.Actor
	Eligible bool
	Admin    bool
}

func (g *StaticGate) Identity() *thread.Actor { return g.Actor }
func (g *StaticGate) IsEligible() bool        { return g.Eligible && g.Actor != nil }
func (g *StaticGate) IsAdmin() bool           { return g.Admin }

// Anonymous returns a gate for a signed-out viewer: read-only, no identity.
func Anonymous() *StaticGate {
	return &StaticGate{}
}
