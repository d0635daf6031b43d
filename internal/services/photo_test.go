package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/pairlink/pairlink-backend/internal/models"
)

// fakeBlob records uploads and returns deterministic URLs.
type fakeBlob struct {
	mu      sync.Mutex
	uploads []struct{ Folder, Key string }
}

func (b *fakeBlob) UploadBytes(ctx context.Context, data []byte, folder, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, struct{ Folder, Key string }{folder, key})
	return "https://blob.test/" + folder + "/" + key, nil
}

func (b *fakeBlob) last(t *testing.T) struct{ Folder, Key string } {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.uploads)
	return b.uploads[len(b.uploads)-1]
}

type countingFetch struct {
	mu    sync.Mutex
	calls int
	data  []byte
	err   error
}

func (f *countingFetch) fetch(ctx context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.data, f.err
}

func (f *countingFetch) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func bootstrapPhotos(t *testing.T) (*PhotoService, *fakeBlob, *countingFetch) {
	t.Helper()
	cache, err := NewPhotoCache(t.TempDir())
	require.NoError(t, err)
	blob := &fakeBlob{}
	fetch := &countingFetch{data: []byte("jpeg-bytes")}
	p := NewPhotoService(cache, blob, "https://img.test/avatars")
	p.fetch = fetch.fetch
	return p, blob, fetch
}

func TestResolveCacheHitNeverFetches(t *testing.T) {
	p, _, fetch := bootstrapPhotos(t)
	require.NoError(t, p.cache.Write("u1", []byte("cached")))

	res := p.Resolve(context.Background(), "u1", "https://img.test/avatars/u1")
	require.Equal(t, []byte("cached"), res.Local)
	require.Empty(t, res.RemoteURL)
	require.Zero(t, fetch.count())
}

func TestResolveMissFetchesInBackground(t *testing.T) {
	p, _, fetch := bootstrapPhotos(t)

	res := p.Resolve(context.Background(), "u1", "https://img.test/avatars/u1")
	require.Empty(t, res.Local)
	require.Equal(t, "https://img.test/avatars/u1", res.RemoteURL)

	require.Eventually(t, func() bool {
		_, ok := p.cache.Read("u1")
		return ok
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, fetch.count())

	// The next resolve is a pure cache hit.
	res = p.Resolve(context.Background(), "u1", "https://img.test/avatars/u1")
	require.Equal(t, []byte("jpeg-bytes"), res.Local)
	require.Equal(t, 1, fetch.count())
}

func TestResolveMissWithoutURL(t *testing.T) {
	p, _, fetch := bootstrapPhotos(t)

	res := p.Resolve(context.Background(), "u1", "")
	require.True(t, res.Empty())
	require.Zero(t, fetch.count())
}

func TestResolveFetchFailureStaysUncached(t *testing.T) {
	p, _, fetch := bootstrapPhotos(t)
	fetch.err = errors.New("404")

	res := p.Resolve(context.Background(), "u1", "https://img.test/avatars/u1")
	require.Equal(t, "https://img.test/avatars/u1", res.RemoteURL)

	require.Eventually(t, func() bool { return fetch.count() == 1 }, time.Second, 5*time.Millisecond)
	_, ok := p.cache.Read("u1")
	require.False(t, ok)
}

func TestUploadProfilePhotoKeyIsUserID(t *testing.T) {
	// Profile avatars overwrite: same user, same key, every save.
	p, blob, _ := bootstrapPhotos(t)

	url, err := p.UploadProfilePhoto(context.Background(), "u1", "/tmp/pic.jpg")
	require.NoError(t, err)
	require.Equal(t, "https://blob.test/usersImages/u1", url)
	require.Equal(t, ProfilePhotoFolder, blob.last(t).Folder)
	require.Equal(t, "u1", blob.last(t).Key)

	data, ok := p.cache.Read("u1")
	require.True(t, ok)
	require.Equal(t, []byte("jpeg-bytes"), data)
}

func TestUploadPhotoMessageKeyIsFresh(t *testing.T) {
	// Photo messages never share keys: two uploads of the same bytes get
	// two cache entries and two blob objects.
	p, blob, _ := bootstrapPhotos(t)
	ctx := context.Background()

	_, key1, err := p.UploadPhotoMessage(ctx, "u1", "/tmp/pic.jpg")
	require.NoError(t, err)
	_, key2, err := p.UploadPhotoMessage(ctx, "u1", "/tmp/pic.jpg")
	require.NoError(t, err)

	require.NotEqual(t, key1, key2)
	require.NotEqual(t, "u1", key1)
	require.Equal(t, MessagePhotoFolder+"/u1", blob.last(t).Folder)

	_, ok := p.cache.Read(key1)
	require.True(t, ok)
	_, ok = p.cache.Read(key2)
	require.True(t, ok)
}

func TestCachePhotoMessageBackfillsFileName(t *testing.T) {
	p, _, _ := bootstrapPhotos(t)
	store := newFakeStore()
	ctx := context.Background()

	msg := models.NewPhotoMessage("b1", "a1", "https://blob.test/userPhotoMessage/b1/k1")
	require.NoError(t, store.AppendMessage(ctx, "a1", "b1", msg))

	require.NoError(t, p.CachePhotoMessage(ctx, store, "a1", msg))

	box := store.mailbox("a1", "b1")
	require.Len(t, box, 1)
	require.NotEmpty(t, box[0].FileName)
	_, ok := p.cache.Read(box[0].FileName)
	require.True(t, ok)
}

func TestImageURLTokenRoundTrip(t *testing.T) {
	p, _, _ := bootstrapPhotos(t)

	url := p.ImageURL("u1", "tok-123")
	require.Equal(t, "https://img.test/avatars/u1?alt=media&token=tok-123", url)
	require.Equal(t, "tok-123", ImageToken(url))
	require.Empty(t, ImageToken("https://img.test/avatars/u1"))
}
