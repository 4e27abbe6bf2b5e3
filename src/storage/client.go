// Package storage talks to the hosted object store that keeps trade
// screenshots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 300 * time.Millisecond
	defaultRetryMaxBackoff = 3 * time.Second
)

// ErrEmptyPath is returned when an object path is blank.
var ErrEmptyPath = errors.New("object path is empty")

// Client uploads objects and signs download URLs for one bucket.
type Client struct {
	bucket string
	ttl    time.Duration
	http   *resty.Client
}

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// NewClient builds a Client from config.
func NewClient(config Config) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(config.URL, "/")).
		SetTimeout(30 * time.Second).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	if config.ServiceKey != "" {
		httpClient.
			SetAuthToken(config.ServiceKey).
			SetHeader("apikey", config.ServiceKey)
	}

	return &Client{
		bucket: config.Bucket,
		ttl:    config.SignedURLTTL,
		http:   httpClient,
	}
}

// ObjectPath returns a collision free object path under the user's folder,
// keeping the extension of filename.
func ObjectPath(userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(userID, uuid.NewString()+ext)
}

// Upload stores blob at objectPath, replacing any previous object.
func (c *Client) Upload(ctx context.Context, objectPath, contentType string, blob []byte) error {
	objectPath = strings.Trim(objectPath, "/")
	if objectPath == "" {
		return ErrEmptyPath
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(blob).
		SetError(&apiErr).
		Post(fmt.Sprintf("/storage/v1/object/%s/%s", c.bucket, objectPath))
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload %s: HTTP %d: %s", objectPath, resp.StatusCode(), apiErr.describe(resp))
	}

	logger.WithFields(map[string]interface{}{
		"component": "storage",
		"bucket":    c.bucket,
		"path":      objectPath,
		"bytes":     len(blob),
	}).Info("Object uploaded")

	return nil
}

// SignedURL returns a time limited download URL for objectPath.
func (c *Client) SignedURL(ctx context.Context, objectPath string) (string, error) {
	objectPath = strings.Trim(objectPath, "/")
	if objectPath == "" {
		return "", ErrEmptyPath
	}

	var out signResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(signRequest{ExpiresIn: int(c.ttl.Seconds())}).
		SetResult(&out).
		SetError(&apiErr).
		Post(fmt.Sprintf("/storage/v1/object/sign/%s/%s", c.bucket, objectPath))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", objectPath, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("sign %s: HTTP %d: %s", objectPath, resp.StatusCode(), apiErr.describe(resp))
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("sign %s: empty signed URL", objectPath)
	}

	// the store answers with a path relative to its storage API root
	if strings.HasPrefix(out.SignedURL, "/") {
		return c.http.BaseURL + "/storage/v1" + out.SignedURL, nil
	}
	return out.SignedURL, nil
}

func (e errorResponse) describe(resp *resty.Response) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	default:
		return string(resp.Body())
	}
}
