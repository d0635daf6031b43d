package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pairlink/pairlink-backend/internal/models"
)

// Blob folders. The full object path is <folder>/<key>.
const (
	ProfilePhotoFolder = "usersImages"
	MessagePhotoFolder = "userPhotoMessage"
)

// Resolution is the outcome of the read-through algorithm. Exactly one of
// Local or RemoteURL is set on success; both empty means "no image".
type Resolution struct {
	Local     []byte
	RemoteURL string
}

func (r Resolution) Empty() bool {
	return len(r.Local) == 0 && r.RemoteURL == ""
}

// PhotoService owns the cache-or-fetch-and-cache logic shared by profile
// avatars, chat-partner avatars and photo-message bubbles, plus the upload
// paths into the blob store.
type PhotoService struct {
	cache   *PhotoCache
	blob    BlobStore
	baseURL string

	// fetch reads bytes from a remote URL or a device-local path;
	// replaceable in tests.
	fetch func(ctx context.Context, uri string) ([]byte, error)

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewPhotoService(cache *PhotoCache, blob BlobStore, baseImageURL string) *PhotoService {
	p := &PhotoService{
		cache:    cache,
		blob:     blob,
		baseURL:  strings.TrimRight(baseImageURL, "/"),
		inflight: make(map[string]struct{}),
	}
	p.fetch = p.fetchBytes
	return p
}

// Resolve runs the read-through algorithm for key. A cache hit never touches
// the network. On a miss with a non-empty remote URL the remote bytes are
// fetched and cached in the background while the URL is returned for direct
// rendering; the background failure is logged, never surfaced.
func (p *PhotoService) Resolve(ctx context.Context, key, remoteURL string) Resolution {
	if data, ok := p.cache.Read(key); ok {
		return Resolution{Local: data}
	}
	if remoteURL == "" {
		return Resolution{}
	}

	if p.beginFetch(key) {
		go func() {
			defer p.endFetch(key)
			data, err := p.fetch(context.Background(), remoteURL)
			if err != nil {
				log.Printf("Resolve -> fetch %s -> %v", key, err)
				return
			}
			if err := p.cache.Write(key, data); err != nil {
				log.Printf("Resolve -> cache %s -> %v", key, err)
			}
		}()
	}
	return Resolution{RemoteURL: remoteURL}
}

// UploadProfilePhoto caches the photo under the user's id and uploads it to
// usersImages/<userID>. One photo per identity: the cache entry and the blob
// are both overwritten on every profile save.
func (p *PhotoService) UploadProfilePhoto(ctx context.Context, userID, localURI string) (string, error) {
	data, err := p.fetch(ctx, localURI)
	if err != nil {
		return "", err
	}
	if err := p.cache.Write(userID, data); err != nil {
		log.Printf("UploadProfilePhoto -> cache -> %v", err)
	} else {
		log.Printf("UploadProfilePhoto -> photo saved in the local cache")
	}
	return p.blob.UploadBytes(ctx, data, ProfilePhotoFolder, userID)
}

// UploadPhotoMessage caches the photo under a fresh key and uploads it to
// userPhotoMessage/<currentUserID>/<key>. One photo per message: keys are
// never reused, the cache grows append-only with the message history.
func (p *PhotoService) UploadPhotoMessage(ctx context.Context, currentUserID, localURI string) (url, key string, err error) {
	key = uuid.NewString()
	data, err := p.fetch(ctx, localURI)
	if err != nil {
		return "", "", err
	}
	if err := p.cache.Write(key, data); err != nil {
		log.Printf("UploadPhotoMessage -> cache -> %v", err)
	}
	url, err = p.blob.UploadBytes(ctx, data, MessagePhotoFolder+"/"+currentUserID, key)
	if err != nil {
		return "", "", err
	}
	return url, key, nil
}

// CachePhotoMessage downloads a received photo message, caches it under a
// fresh key and back-fills that key as fileName on the single matching record
// in the current user's own mailbox. This is the only mutation a message ever
// sees after being written.
func (p *PhotoService) CachePhotoMessage(ctx context.Context, store Store, selfID string, msg models.Message) error {
	data, err := p.fetch(ctx, msg.Data)
	if err != nil {
		return err
	}
	key := uuid.NewString()
	if err := p.cache.Write(key, data); err != nil {
		return err
	}
	return store.BackfillFileName(ctx, selfID, msg.Partner(selfID), msg.Data, key)
}

// ImageURL rebuilds a full avatar URL from an owner id and the short-lived
// access token that crossed the navigation boundary. The format is contract.
func (p *PhotoService) ImageURL(userID, token string) string {
	return fmt.Sprintf("%s/%s?alt=media&token=%s", p.baseURL, userID, token)
}

// ImageToken extracts the access token carried at the end of a download URL,
// the only part of the URL propagated across navigation boundaries.
func ImageToken(url string) string {
	idx := strings.LastIndex(url, "token=")
	if idx < 0 {
		return ""
	}
	return url[idx+len("token="):]
}

func (p *PhotoService) beginFetch(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[key]; busy {
		return false
	}
	p.inflight[key] = struct{}{}
	return true
}

func (p *PhotoService) endFetch(key string) {
	p.mu.Lock()
	delete(p.inflight, key)
	p.mu.Unlock()
}

func (p *PhotoService) fetchBytes(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		// Device-local URI.
		data, err := os.ReadFile(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return data, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetching %s: %s", ErrTransport, uri, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
