package handler

import (
	"context"
	"io"
	"net/http"

	"tradejournal/src/auth"
	"tradejournal/src/service"
)

type screenshotService interface {
	UploadScreenshot(ctx context.Context, filename, contentType string, blob []byte) (*service.Screenshot, error)
	SignImage(ctx context.Context, objectPath string) (string, error)
}

// UploadScreenshotHandler stores the multipart "file" field and returns its
// storage path and a signed URL.
func UploadScreenshotHandler(svc screenshotService, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile(formFileField)
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		blob, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(blob)
		}

		shot, err := svc.UploadScreenshot(r.Context(), header.Filename, contentType, blob)
		if err != nil {
			writeError(w, err, "UploadScreenshot")
			return
		}

		writeJSON(w, http.StatusCreated, shot)
	}
}

// SignScreenshotHandler re-signs the object named by the "path" query parameter.
func SignScreenshotHandler(svc screenshotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		objectPath := r.URL.Query().Get("path")
		if objectPath == "" {
			http.Error(w, "missing path", http.StatusBadRequest)
			return
		}

		url, err := svc.SignImage(r.Context(), objectPath)
		if err != nil {
			writeError(w, err, "SignImage")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"path": objectPath, "url": url})
	}
}
