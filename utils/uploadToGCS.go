package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	// Prefer ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
	// If you need to provide explicit JSON (e.g. locally), set GCS_CREDENTIALS_JSON.
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GetGCSClient exposes the shared Google Cloud Storage client.
func GetGCSClient(ctx context.Context) (*storage.Client, error) {
	return getGoogleClient(ctx)
}

// UploadBytesToGCS stores raw bytes (e.g. a generated thumbnail) under objectName.
func UploadBytesToGCS(ctx context.Context, objectName string, data []byte, contentType string) error {
	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		return errors.New("GCS_BUCKET is required")
	}

	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %q not found or not accessible: %v", bucketName, err)
	}

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err = wc.Write(data); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}

	return nil
}

// UploadFileToGCS stores an uploaded file (invoice PDF, logo) after a MIME check.
func UploadFileToGCS(ctx context.Context, objectName string, fileContent io.Reader) error {
	fileData, err := io.ReadAll(fileContent)
	if err != nil {
		return fmt.Errorf("failed to read file content: %v", err)
	}

	mimeType := http.DetectContentType(fileData)

	// Manually set MIME type for .docx and .xlsx files
	if mimeType == "application/zip" {
		if strings.HasSuffix(objectName, ".docx") {
			mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		} else if strings.HasSuffix(objectName, ".xlsx") {
			mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		}
	}

	allowedMimeTypes := map[string]bool{
		"application/pdf": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
		"image/jpeg": true,
		"image/png":  true,
	}

	if !allowedMimeTypes[mimeType] {
		return fmt.Errorf("unsupported file type: %s", mimeType)
	}

	return UploadBytesToGCS(ctx, objectName, fileData, mimeType)
}

// PublicObjectURL builds the access URL for a stored object.
func PublicObjectURL(objectName string) string {
	bucketName := os.Getenv("GCS_BUCKET")
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucketName, objectName)
}

// ExtractObjectKeyFromURL recovers the object name from a public URL for
// this bucket, or "" when the URL points elsewhere.
func ExtractObjectKeyFromURL(fullUrl string) string {
	bucketName := os.Getenv("GCS_BUCKET")
	prefix := fmt.Sprintf("https://storage.googleapis.com/%s/", bucketName)
	if bucketName == "" || !strings.HasPrefix(fullUrl, prefix) {
		return ""
	}
	return strings.TrimPrefix(fullUrl, prefix)
}

// DeleteObjectFromGCS removes an object; a missing object is not an error.
func DeleteObjectFromGCS(ctx context.Context, objectName string) error {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	bucketName := os.Getenv("GCS_BUCKET")
	if err := client.Bucket(bucketName).Object(objectName).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return err
	}
	return nil
}

// ObjectExistsInGCS checks for an object without downloading it.
func ObjectExistsInGCS(ctx context.Context, objectName string) (bool, error) {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return false, err
	}
	defer client.Close()

	bucketName := os.Getenv("GCS_BUCKET")
	if _, err := client.Bucket(bucketName).Object(objectName).Attrs(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CheckFileExistInGCS verifies a stored document URL, falling back to an
// HTTP HEAD for URLs outside this bucket.
func CheckFileExistInGCS(fileURL string) error {
	if objectKey := ExtractObjectKeyFromURL(fileURL); objectKey != "" {
		ok, err := ObjectExistsInGCS(context.Background(), objectKey)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return errors.New("file does not exist")
	}

	resp, err := http.Head(fileURL)
	if err != nil {
		return errors.New("invalid file url")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return errors.New("file does not exist")
}
