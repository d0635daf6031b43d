package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/pairlink/pairlink-backend/internal/models"
)

// fakeIdentity is an in-memory Identity provider.
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]string // email -> password
	ids      map[string]string // email -> id
	signOuts int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{accounts: make(map[string]string), ids: make(map[string]string)}
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return "", fmt.Errorf("%w: account with this email already exists", ErrValidation)
	}
	id := "id-" + email
	f.accounts[email] = password
	f.ids[email] = id
	return id, nil
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accounts[email] != password || password == "" {
		return "", fmt.Errorf("%w: wrong email or password", ErrValidation)
	}
	return f.ids[email], nil
}

func (f *fakeIdentity) SignOut(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return nil
}

func bootstrapSession(t *testing.T) (*Session, *fakeStore, *fakeIdentity) {
	t.Helper()
	store := newFakeStore()
	identity := newFakeIdentity()

	cache, err := NewPhotoCache(t.TempDir())
	require.NoError(t, err)
	photos := NewPhotoService(cache, &fakeBlob{}, "https://img.test/avatars")
	photos.fetch = func(ctx context.Context, uri string) ([]byte, error) {
		return []byte("jpeg-bytes"), nil
	}

	return NewSession(store, photos, identity), store, identity
}

func signedInSession(t *testing.T) (*Session, *fakeStore) {
	t.Helper()
	sess, store, _ := bootstrapSession(t)
	ctx := context.Background()
	require.True(t, sess.SignUp(ctx, "a@test.io", "pw", "pw"))
	sess.ResetProcessState()
	require.True(t, sess.SignIn(ctx, "a@test.io", "pw"))
	return sess, store
}

func TestSignUpValidation(t *testing.T) {
	sess, _, _ := bootstrapSession(t)
	ctx := context.Background()

	require.False(t, sess.SignUp(ctx, "", "pw", "pw"))
	st := sess.ProcessState().Get()
	require.Equal(t, models.ProcessError, st.Kind)
	require.Equal(t, "make sure to input all required data", st.Message)
	sess.ResetProcessState()

	require.False(t, sess.SignUp(ctx, "a@test.io", "pw", "other"))
	require.Equal(t, "passwords aren't matching", sess.ProcessState().Get().Message)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	sess, _, _ := bootstrapSession(t)
	ctx := context.Background()

	require.True(t, sess.SignUp(ctx, "a@test.io", "pw", "pw"))
	sess.ResetProcessState()
	require.False(t, sess.SignUp(ctx, "a@test.io", "pw", "pw"))
	require.Contains(t, sess.ProcessState().Get().Message, "already exists")
}

func TestSignInTransitionsToLoggedIn(t *testing.T) {
	sess, _ := signedInSession(t)

	require.Equal(t, models.LoggedIn, sess.UserState().Get())
	require.Equal(t, "id-a@test.io", sess.SelfID())
	require.NotNil(t, sess.Relationships)
	require.NotNil(t, sess.Conversations)
}

func TestSignInWrongPassword(t *testing.T) {
	sess, _, _ := bootstrapSession(t)
	ctx := context.Background()
	require.True(t, sess.SignUp(ctx, "a@test.io", "pw", "pw"))
	sess.ResetProcessState()

	require.False(t, sess.SignIn(ctx, "a@test.io", "nope"))
	require.Equal(t, models.LoggedOut, sess.UserState().Get())
	require.Equal(t, models.ProcessError, sess.ProcessState().Get().Kind)
}

func TestFirstLoginUntilProfileSaved(t *testing.T) {
	sess, store := signedInSession(t)
	ctx := context.Background()

	require.True(t, sess.FirstLogin(ctx))

	require.NoError(t, store.SaveUser(ctx, models.User{ID: sess.SelfID(), Username: "alice"}))
	require.False(t, sess.FirstLogin(ctx))
}

func TestSaveProfile(t *testing.T) {
	sess, store := signedInSession(t)
	ctx := context.Background()

	profile := models.ProfileUser{
		User:      models.User{Username: "alice"},
		FirstName: "Alice",
		LastName:  "Park",
		Gender:    "female",
	}
	require.True(t, sess.SaveProfile(ctx, profile, "/tmp/pic.jpg"))
	require.Equal(t, models.ProcessSuccess, sess.ProcessState().Get().Kind)

	saved, found, err := store.GetUser(ctx, sess.SelfID())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice", saved.Username)
	require.Equal(t, models.StatusOnline, saved.Status)
	require.Equal(t, "https://blob.test/usersImages/"+sess.SelfID(), saved.ImageURL)

	info, ok, err := store.GetPersonalInfo(ctx, sess.SelfID())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Alice", info.FirstName)

	require.Equal(t, "alice", sess.CurrentUser().Get().Username)
}

func TestSaveProfileIncomplete(t *testing.T) {
	sess, _ := signedInSession(t)

	profile := models.ProfileUser{User: models.User{Username: "alice"}}
	require.False(t, sess.SaveProfile(context.Background(), profile, ""))
	require.Equal(t, "not a valid input make sure to fill all fields", sess.ProcessState().Get().Message)
}

func TestSaveProfileBadUsername(t *testing.T) {
	sess, _ := signedInSession(t)

	profile := models.ProfileUser{
		User:      models.User{Username: "a!"},
		FirstName: "Alice",
		LastName:  "Park",
		Gender:    "female",
	}
	require.False(t, sess.SaveProfile(context.Background(), profile, ""))
	require.Equal(t, models.ProcessError, sess.ProcessState().Get().Kind)
}

func TestProcessStateIsSticky(t *testing.T) {
	sess, _, _ := bootstrapSession(t)

	require.False(t, sess.SignUp(context.Background(), "", "pw", "pw"))
	require.Equal(t, models.ProcessError, sess.ProcessState().Get().Kind)
	// Still the error until an explicit reset.
	require.Equal(t, models.ProcessError, sess.ProcessState().Get().Kind)

	sess.ResetProcessState()
	require.Equal(t, models.ProcessInitialized, sess.ProcessState().Get().Kind)
}

func TestSignOut(t *testing.T) {
	sess, store := signedInSession(t)
	ctx := context.Background()
	id := sess.SelfID()
	require.NoError(t, store.SaveUser(ctx, models.User{ID: id, Username: "alice", Status: models.StatusOnline}))

	require.True(t, sess.SignOut(ctx))
	require.Equal(t, models.LoggedOut, sess.UserState().Get())
	require.Empty(t, sess.SelfID())
	require.Empty(t, sess.CurrentUser().Get().ID)

	saved, _, _ := store.GetUser(ctx, id)
	require.True(t, strings.HasPrefix(saved.Status, "last seen "))
}

func TestSendMessagePhotoUploadsFirst(t *testing.T) {
	sess, store := signedInSession(t)
	ctx := context.Background()

	msg := models.NewPhotoMessage(sess.SelfID(), "b1", "/storage/pics/local.jpg")
	require.True(t, sess.SendMessage(ctx, msg))

	box := store.mailbox(sess.SelfID(), "b1")
	require.Len(t, box, 1)
	require.True(t, strings.HasPrefix(box[0].Data, "https://blob.test/"))
	require.NotEmpty(t, box[0].FileName)
}

func TestSendMessagePhotoLocalPathResemblingScheme(t *testing.T) {
	// Only a real http(s) URL counts as already uploaded; a relative local
	// path that merely starts with "http" still goes through the upload.
	sess, store := signedInSession(t)
	ctx := context.Background()

	msg := models.NewPhotoMessage(sess.SelfID(), "b1", "httpcache/img.jpg")
	require.True(t, sess.SendMessage(ctx, msg))

	box := store.mailbox(sess.SelfID(), "b1")
	require.Len(t, box, 1)
	require.True(t, strings.HasPrefix(box[0].Data, "https://blob.test/"))
	require.NotEmpty(t, box[0].FileName)
}

func TestSendMessagePhotoKeepsUploadedURL(t *testing.T) {
	sess, store := signedInSession(t)
	ctx := context.Background()

	msg := models.NewPhotoMessage(sess.SelfID(), "b1", "https://blob.test/userPhotoMessage/x/k1")
	msg.FileName = "k1"
	require.True(t, sess.SendMessage(ctx, msg))

	box := store.mailbox(sess.SelfID(), "b1")
	require.Len(t, box, 1)
	require.Equal(t, "https://blob.test/userPhotoMessage/x/k1", box[0].Data)
	require.Equal(t, "k1", box[0].FileName)
}

func TestResolveMessagePhotoBackfills(t *testing.T) {
	sess, store := signedInSession(t)
	ctx := context.Background()

	msg := models.NewPhotoMessage("b1", sess.SelfID(), "https://blob.test/userPhotoMessage/b1/k1")
	require.NoError(t, store.AppendMessage(ctx, sess.SelfID(), "b1", msg))

	res := sess.ResolveMessagePhoto(ctx, msg)
	require.Equal(t, msg.Data, res.RemoteURL)

	require.Eventually(t, func() bool {
		box := store.mailbox(sess.SelfID(), "b1")
		return len(box) == 1 && box[0].FileName != ""
	}, time.Second, 5*time.Millisecond)
}

func TestProfileMergesPersonalInfo(t *testing.T) {
	sess, store := signedInSession(t)
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, models.User{ID: "b1", Username: "bob"}))
	require.NoError(t, store.SavePersonalInfo(ctx, models.PersonalInfo{ID: "b1", FirstName: "Bob", LastName: "Lee", Gender: "male"}))

	profile, found := sess.Profile(ctx, "b1")
	require.True(t, found)
	require.Equal(t, "bob", profile.Username)
	require.Equal(t, "Bob", profile.FirstName)

	_, found = sess.Profile(ctx, "missing")
	require.False(t, found)
}
