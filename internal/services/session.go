package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pairlink/pairlink-backend/internal/models"
	"github.com/pairlink/pairlink-backend/internal/state"
	"github.com/pairlink/pairlink-backend/pkg/utils"
)

// Session is the per-login coordinator: it owns the process-wide reactive
// state (current user, user state, process state), composes the two engines
// and the photo service, and is the only place the current user id lives.
// One Session exists per authenticated client; it is constructed at login and
// torn down at logout rather than kept as an ambient singleton.
type Session struct {
	store    Store
	photos   *PhotoService
	identity Identity

	mu     sync.Mutex
	selfID string

	currentUser  *state.Observable[models.User]
	userState    *state.Observable[models.UserState]
	processState *state.Observable[models.ProcessState]

	Relationships *RelationshipEngine
	Conversations *ConversationEngine
}

func NewSession(store Store, photos *PhotoService, identity Identity) *Session {
	return &Session{
		store:        store,
		photos:       photos,
		identity:     identity,
		currentUser:  state.NewObservable(models.User{}),
		userState:    state.NewObservable(models.LoggedOut),
		processState: state.NewObservable(models.Initialized()),
	}
}

// CurrentUser exposes the current user record; its ImageURL field may be
// empty until the profile photo resolves.
func (s *Session) CurrentUser() *state.Observable[models.User] { return s.currentUser }

// UserState exposes the LoggedOut/LoggedIn state.
func (s *Session) UserState() *state.Observable[models.UserState] { return s.userState }

// ProcessState exposes the loading/error banner channel. Terminal states are
// sticky; callers must ResetProcessState after observing one.
func (s *Session) ProcessState() *state.Observable[models.ProcessState] { return s.processState }

// SelfID returns the current user id, or "" when logged out.
func (s *Session) SelfID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfID
}

// ResetProcessState returns the process channel to Initialized. It is the
// caller's job to invoke this after consuming a Success or Error.
func (s *Session) ResetProcessState() {
	s.processState.Set(models.Initialized())
}

func (s *Session) fail(msg string) {
	s.processState.Set(models.ProcessErr(msg))
}

// SignUp registers a new identity. The profile is filled in on first login.
func (s *Session) SignUp(ctx context.Context, email, password, confirmedPassword string) bool {
	s.processState.Set(models.Loading())
	if !validCredentials(email, password) {
		s.fail("make sure to input all required data")
		return false
	}
	if confirmedPassword != password {
		s.fail("passwords aren't matching")
		return false
	}

	if _, err := s.identity.SignUp(ctx, strings.TrimSpace(email), strings.TrimSpace(password)); err != nil {
		s.fail(err.Error())
		return false
	}
	s.processState.Set(models.Success())
	return true
}

// SignIn authenticates and transitions the session to LoggedIn. Side effects
// of the transition: first-login detection, and when the profile already
// exists, eager loading of the relationship lists plus an online status mark.
func (s *Session) SignIn(ctx context.Context, email, password string) bool {
	s.processState.Set(models.Loading())
	if !validCredentials(email, password) {
		s.fail("empty username or password")
		return false
	}

	id, err := s.identity.SignIn(ctx, strings.TrimSpace(email), strings.TrimSpace(password))
	if err != nil {
		s.fail(err.Error())
		return false
	}

	s.login(ctx, id)
	return true
}

func (s *Session) login(ctx context.Context, id string) {
	s.mu.Lock()
	s.selfID = id
	s.Relationships = NewRelationshipEngine(s.store, id)
	s.Conversations = NewConversationEngine(s.store, id)
	s.mu.Unlock()

	if !s.FirstLogin(ctx) {
		s.initLoggedInUser(ctx)
	}
	s.userState.Set(models.LoggedIn)
}

// FirstLogin reports whether this identity has no profile record yet. Errors
// count as a first login, matching the conservative original behavior.
func (s *Session) FirstLogin(ctx context.Context) bool {
	_, found, err := s.store.GetUser(ctx, s.SelfID())
	if err != nil {
		s.fail(err.Error())
		return true
	}
	return !found
}

func (s *Session) initLoggedInUser(ctx context.Context) {
	s.syncCurrentUser(ctx)
	if err := s.Relationships.Start(ctx); err != nil {
		log.Printf("initLoggedInUser -> %v", err)
	}
	s.UpdateStatus(ctx, true)
}

func (s *Session) syncCurrentUser(ctx context.Context) {
	user, found, err := s.store.GetUser(ctx, s.SelfID())
	if err != nil {
		s.fail(err.Error())
		return
	}
	if found {
		s.currentUser.Set(user)
	}
}

// SignOut tears the session down: offline status, engines closed, cached
// lists emptied, current user id cleared.
func (s *Session) SignOut(ctx context.Context) bool {
	if err := s.identity.SignOut(ctx, s.SelfID()); err != nil {
		s.fail(err.Error())
		return false
	}

	s.UpdateStatus(ctx, false)
	if s.Relationships != nil {
		s.Relationships.Close()
	}
	if s.Conversations != nil {
		s.Conversations.Close()
	}

	s.mu.Lock()
	s.selfID = ""
	s.mu.Unlock()
	s.currentUser.Set(models.User{})
	s.userState.Set(models.LoggedOut)
	return true
}

// Detach tears the session down locally when a newer login supersedes it:
// engines closed, state cleared. Unlike SignOut it touches no remote state —
// the user is still signed in, just under a fresh session.
func (s *Session) Detach() {
	if s.Relationships != nil {
		s.Relationships.Close()
	}
	if s.Conversations != nil {
		s.Conversations.Close()
	}

	s.mu.Lock()
	s.selfID = ""
	s.mu.Unlock()
	s.currentUser.Set(models.User{})
	s.userState.Set(models.LoggedOut)
}

// UpdateStatus writes the status heartbeat: "online", or "last seen <epoch>"
// when going offline.
func (s *Session) UpdateStatus(ctx context.Context, online bool) {
	id := s.SelfID()
	if id == "" {
		return
	}
	status := models.StatusOnline
	if !online {
		status = models.LastSeenStatus(time.Now())
	}
	if err := s.store.UpdateUserStatus(ctx, id, status); err != nil {
		log.Printf("UpdateStatus -> %v", err)
	}
}

// SaveProfile validates and persists the profile gathered on first login:
// avatar upload (cache key = user id), public user record, personal-info
// record, and the empty relationship/chat-list documents.
func (s *Session) SaveProfile(ctx context.Context, profile models.ProfileUser, photoURI string) bool {
	s.processState.Set(models.Loading())

	profile.ID = s.SelfID()
	profile.Status = models.StatusOnline
	if !profile.Complete() {
		s.fail("not a valid input make sure to fill all fields")
		return false
	}
	if err := utils.ValidateUsername(profile.Username); err != nil {
		s.fail(err.Error())
		return false
	}

	if photoURI != "" {
		url, err := s.photos.UploadProfilePhoto(ctx, profile.ID, photoURI)
		if err != nil {
			s.fail("something went wrong")
			return false
		}
		profile.ImageURL = url
	}

	if err := s.store.SaveUser(ctx, profile.User); err != nil {
		s.fail(err.Error())
		return false
	}
	if err := s.store.SavePersonalInfo(ctx, profile.PersonalInfo()); err != nil {
		s.fail(err.Error())
		return false
	}
	if err := s.store.InitUserDocs(ctx, profile.ID); err != nil {
		s.fail(err.Error())
		return false
	}

	s.currentUser.Set(profile.User)
	s.initLoggedInUser(ctx)
	s.processState.Set(models.Success())
	return true
}

// Profile merges the public user record with its personal-info record.
func (s *Session) Profile(ctx context.Context, id string) (models.ProfileUser, bool) {
	user, found, err := s.store.GetUser(ctx, id)
	if err != nil || !found {
		return models.ProfileUser{}, false
	}
	profile := models.ProfileUser{User: user}
	if info, ok, err := s.store.GetPersonalInfo(ctx, id); err == nil && ok {
		profile.FirstName = info.FirstName
		profile.LastName = info.LastName
		profile.Gender = info.Gender
	}
	return profile, true
}

// SendMessage routes one message through the conversation engine. Photo
// messages are uploaded first so the stored payload carries the durable
// download URL and cache key, never the device-local URI.
func (s *Session) SendMessage(ctx context.Context, msg models.Message) bool {
	s.processState.Set(models.Loading())

	if msg.IsPhoto() && !strings.HasPrefix(msg.Data, "http://") && !strings.HasPrefix(msg.Data, "https://") {
		url, key, err := s.photos.UploadPhotoMessage(ctx, s.SelfID(), msg.Data)
		if err != nil {
			s.fail(err.Error())
			return false
		}
		msg.Data = url
		msg.FileName = key
	}

	if err := s.Conversations.SendMessage(ctx, msg); err != nil {
		s.fail(err.Error())
		return false
	}
	s.processState.Set(models.Success())
	return true
}

// ResolveUserPhoto runs the read-through cache for a user's avatar.
func (s *Session) ResolveUserPhoto(ctx context.Context, user models.User) Resolution {
	return s.photos.Resolve(ctx, user.ID, user.ImageURL)
}

// ResolveMessagePhoto runs the read-through cache for a photo message. When
// the local key is still missing the photo is cached in the background and
// its key back-filled onto the mailbox record.
func (s *Session) ResolveMessagePhoto(ctx context.Context, msg models.Message) Resolution {
	if msg.FileName != "" {
		if res := s.photos.Resolve(ctx, msg.FileName, msg.Data); !res.Empty() {
			return res
		}
	}
	go func() {
		if err := s.photos.CachePhotoMessage(context.Background(), s.store, s.SelfID(), msg); err != nil {
			log.Printf("ResolveMessagePhoto -> %v", err)
		}
	}()
	return Resolution{RemoteURL: msg.Data}
}

func validCredentials(email, password string) bool {
	return strings.TrimSpace(email) != "" && strings.TrimSpace(password) != ""
}
