package services

import "sync"

// Registry maps bearer tokens to live session coordinators. A coordinator is
// registered at login and dropped at logout, so "one active identity per
// running client" holds without any process-wide current-user global. At most
// one session per user id: a repeat login supersedes the previous session,
// which is detached so its engine subscriptions do not outlive its token.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	userToken map[string]string // user id -> current token
	tokenUser map[string]string // token -> user id
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		userToken: make(map[string]string),
		tokenUser: make(map[string]string),
	}
}

// Put registers s under token for userID. Any prior session of the same user
// is removed and detached.
func (r *Registry) Put(userID, token string, s *Session) {
	r.mu.Lock()
	var prev *Session
	if old, ok := r.userToken[userID]; ok {
		prev = r.sessions[old]
		delete(r.sessions, old)
		delete(r.tokenUser, old)
	}
	r.sessions[token] = s
	r.userToken[userID] = token
	r.tokenUser[token] = userID
	r.mu.Unlock()

	if prev != nil {
		prev.Detach()
	}
}

func (r *Registry) Get(token string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[token]
	r.mu.RUnlock()
	return s, ok
}

func (r *Registry) Delete(token string) {
	r.mu.Lock()
	if userID, ok := r.tokenUser[token]; ok {
		if r.userToken[userID] == token {
			delete(r.userToken, userID)
		}
		delete(r.tokenUser, token)
	}
	delete(r.sessions, token)
	r.mu.Unlock()
}

// Active returns the number of registered sessions.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
