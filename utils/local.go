package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalURLPrefix is where the router serves the upload directory.
const LocalURLPrefix = "/uploads"

// LocalUploader writes images below Dir and serves them from URLPrefix.
type LocalUploader struct {
	Dir       string
	URLPrefix string
}

func NewLocalUploader(dir, urlPrefix string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalUploader{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (u *LocalUploader) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, folder string) (string, error) {
	folder = cleanFolder(folder)
	ext := ""
	if header != nil {
		ext = strings.ToLower(filepath.Ext(header.Filename))
	}
	name := uuid.NewString() + ext

	dir := filepath.Join(u.Dir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, ctxReader{ctx: ctx, r: file}); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("upload error: %w", err)
	}
	return path.Join(u.URLPrefix, folder, name), nil
}

// Delete removes a file previously returned by Upload. Unknown URLs are ignored.
func (u *LocalUploader) Delete(_ context.Context, imageURL string) error {
	rel, ok := strings.CutPrefix(imageURL, u.URLPrefix+"/")
	if !ok {
		return nil
	}
	rel = path.Clean("/" + rel)[1:]
	err := os.Remove(filepath.Join(u.Dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

func cleanFolder(folder string) string {
	folder = path.Clean("/" + folder)[1:]
	if folder == "" {
		return "misc"
	}
	return folder
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
