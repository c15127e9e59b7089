// Package storage defines the object storage contract holding photo bytes
// and the key layout photos are stored under.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned when no object exists under a key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage reads and writes whole objects by key.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// PhotoKey returns a fresh storage key for a photo of taskID with the given
// file extension: photos/{task}/task_{task}_{unique}.{ext}.
func PhotoKey(taskID uuid.UUID, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	return fmt.Sprintf("photos/%s/task_%s_%s.%s", taskID, taskID, uuid.NewString(), ext)
}
