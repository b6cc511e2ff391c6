package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/phillip/campus-pay-go/config"
)

// Uploader stores cover images and returns the URL clients should use.
type Uploader interface {
	Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, folder string) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

// NewUploader picks the media backend named by cfg.Driver.
func NewUploader(cfg config.MediaConfig) (Uploader, error) {
	switch cfg.Driver {
	case config.MediaCloudinary:
		return NewCloudinaryUploader(cfg)
	case config.MediaLocal, "":
		return NewLocalUploader(cfg.UploadDir, LocalURLPrefix)
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.Driver)
	}
}

type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryUploader(cfg config.MediaConfig) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &CloudinaryUploader{cld: cld}, nil
}

// Upload sends the file into folder and returns its secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, file multipart.File, _ *multipart.FileHeader, folder string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: folder})
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload error: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Delete destroys the image behind a full Cloudinary URL.
func (u *CloudinaryUploader) Delete(ctx context.Context, imageURL string) error {
	publicID, err := extractPublicID(imageURL)
	if err != nil {
		return fmt.Errorf("could not extract public ID: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// extractPublicID turns
// https://res.cloudinary.com/demo/image/upload/v1234567890/clubs/abc123.jpg
// into clubs/abc123.
func extractPublicID(imageURL string) (string, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return "", err
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	idx := -1
	for i, p := range parts {
		if p == "upload" {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(parts)-1 {
		return "", fmt.Errorf("invalid cloudinary URL format")
	}

	rest := parts[idx+1:]
	if len(rest) > 1 && versionSegment.MatchString(rest[0]) {
		rest = rest[1:]
	}
	joined := path.Join(rest...)
	return strings.TrimSuffix(joined, path.Ext(joined)), nil
}
