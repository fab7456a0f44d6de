package identity

import (
	"github.com/google/uuid"
)

type Route string

const (
	RouteHome Route = "home"
	RouteTeam Route = "team"
)

// Session is the process-local state of one dashboard user: at most one
// signed-in account and the page being viewed. It is never persisted.
type Session struct {
	ID    uuid.UUID
	User  *User
	Route Route
}

func NewSession() *Session {
	return &Session{ID: uuid.New(), Route: RouteHome}
}

func (s *Session) SignedIn() bool {
	return s.User != nil
}

// SetUser replaces the signed-in account. Callers only do this after the
// identity call that produced u succeeded.
func (s *Session) SetUser(u User) {
	s.User = &u
}

func (s *Session) SignOut() {
	s.User = nil
	s.Route = RouteHome
}

// Go navigates to r. Unknown routes fall back to home.
func (s *Session) Go(r Route) {
	switch r {
	case RouteHome, RouteTeam:
		s.Route = r
	default:
		s.Route = RouteHome
	}
}
