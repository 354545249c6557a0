package supabase

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

type StorageClient struct {
	client     *storage.Client
	bucket     string
	storageURL string
}

func NewStorageClient(supabaseURL, serviceKey, bucket string) *StorageClient {
	storageURL := strings.TrimSuffix(supabaseURL, "/") + "/storage/v1"
	client := storage.NewClient(storageURL, serviceKey, nil)

	return &StorageClient{
		client:     client,
		bucket:     bucket,
		storageURL: storageURL,
	}
}

// DeliveryFilePath is design-orders/{order_id}/v{version}/{filename}.
func DeliveryFilePath(orderID uuid.UUID, version int, filename string) string {
	return fmt.Sprintf("design-orders/%s/v%d/%s", orderID.String(), version, path.Base(filename))
}

func (s *StorageClient) UploadDeliveryFile(orderID uuid.UUID, version int, filename, contentType string, data io.Reader) (string, error) {
	storagePath := DeliveryFilePath(orderID, version, filename)

	upsert := false
	_, err := s.client.UploadFile(s.bucket, storagePath, data, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return storagePath, nil
}

// SignedURL returns a download URL valid for expiresIn seconds. The URL is
// never persisted. storage-go prefixes the storage URL onto whatever the API
// returned, so a reply without a signed path comes back as the bare prefix.
func (s *StorageClient) SignedURL(storagePath string, expiresIn int) (string, error) {
	resp, err := s.client.CreateSignedUrl(s.bucket, storagePath, expiresIn)
	if err != nil {
		return "", fmt.Errorf("failed to create signed url: %w", err)
	}
	if !strings.HasPrefix(resp.SignedURL, s.storageURL+"/object/sign/") {
		return "", fmt.Errorf("failed to create signed url: no signed path returned for %s", storagePath)
	}
	return resp.SignedURL, nil
}

func (s *StorageClient) DeleteFiles(storagePaths []string) error {
	if len(storagePaths) == 0 {
		return nil
	}
	_, err := s.client.RemoveFile(s.bucket, storagePaths)
	if err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}
