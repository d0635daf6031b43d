package services

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore implements BlobStore. Profile photos go under
// usersImages/<userId> (one object per user, overwritten on every profile
// save); photo messages go under userPhotoMessage/<currentUserId>/<key>
// (append-only, never overwritten).
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &CloudinaryStore{cld: cld}, nil
}

// UploadBytes uploads data under folder/key and returns the durable download
// URL. key is deterministic per call site, so repeat uploads of a profile
// photo replace the previous object.
func (s *CloudinaryStore) UploadBytes(ctx context.Context, data []byte, folder, key string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		Folder:       folder,
		PublicID:     key,
		Overwrite:    api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return result.SecureURL, nil
}
