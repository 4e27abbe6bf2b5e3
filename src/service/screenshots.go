package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tradejournal/src/storage"
)

var (
	ErrStorageDisabled = errors.New("object storage is not configured")
	// ErrForbiddenPath is returned when signing an object outside the user's folder.
	ErrForbiddenPath = errors.New("object path does not belong to the user")
)

// ObjectStore keeps screenshot blobs.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, blob []byte) error
	SignedURL(ctx context.Context, objectPath string) (string, error)
}

// Screenshot is an uploaded object. Path is what gets stored in a trade's
// image_url; URL expires.
type Screenshot struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// UploadScreenshot stores blob under the current user's folder and returns
// its path with a signed URL.
func (s *TradeService) UploadScreenshot(ctx context.Context, filename, contentType string, blob []byte) (*Screenshot, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if s.objects == nil {
		return nil, ErrStorageDisabled
	}

	objectPath := storage.ObjectPath(userID, filename)
	if err := s.objects.Upload(ctx, objectPath, contentType, blob); err != nil {
		s.capture(ctx, "storage", "UploadScreenshot", userID, err, map[string]interface{}{
			"path":  objectPath,
			"bytes": len(blob),
		})
		return nil, fmt.Errorf("failed to upload screenshot: %w", err)
	}

	url, err := s.objects.SignedURL(ctx, objectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to sign screenshot: %w", err)
	}

	return &Screenshot{Path: objectPath, URL: url}, nil
}

// SignImage returns a fresh signed URL for a stored screenshot path.
func (s *TradeService) SignImage(ctx context.Context, objectPath string) (string, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return "", err
	}
	if s.objects == nil {
		return "", ErrStorageDisabled
	}

	objectPath = strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if !strings.HasPrefix(objectPath, userID+"/") {
		return "", ErrForbiddenPath
	}

	return s.objects.SignedURL(ctx, objectPath)
}
