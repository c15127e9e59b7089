package minio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/phrazzld/measure-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	putKey      string
	putType     string
	putData     []byte
	putErr      error
	removeErr   error
	removedKeys []string
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64,
	opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	data, _ := io.ReadAll(reader)
	f.putKey, f.putType, f.putData = key, opts.ContentType, data
	return miniogo.UploadInfo{Bucket: bucket, Key: key, Size: size}, f.putErr
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, bucket, key string,
	opts miniogo.GetObjectOptions) (*miniogo.Object, error) {
	return nil, miniogo.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
}

func (f *fakeObjectAPI) RemoveObject(ctx context.Context, bucket, key string, opts miniogo.RemoveObjectOptions) error {
	f.removedKeys = append(f.removedKeys, key)
	return f.removeErr
}

func TestStoragePut(t *testing.T) {
	t.Parallel()

	api := &fakeObjectAPI{}
	s := newStorage(api, "photos", nil)

	require.NoError(t, s.Put(context.Background(), "photos/a.jpg", "image/jpeg", []byte("abc")))
	assert.Equal(t, "photos/a.jpg", api.putKey)
	assert.Equal(t, "image/jpeg", api.putType)
	assert.Equal(t, []byte("abc"), api.putData)

	api.putErr = errors.New("disk full")
	assert.Error(t, s.Put(context.Background(), "photos/b.jpg", "image/jpeg", nil))
}

func TestStorageGetMissingKey(t *testing.T) {
	t.Parallel()

	s := newStorage(&fakeObjectAPI{}, "photos", nil)
	_, err := s.Get(context.Background(), "photos/missing.jpg")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestStorageDelete(t *testing.T) {
	t.Parallel()

	api := &fakeObjectAPI{}
	s := newStorage(api, "photos", nil)
	require.NoError(t, s.Delete(context.Background(), "photos/a.jpg"))
	assert.Equal(t, []string{"photos/a.jpg"}, api.removedKeys)

	api.removeErr = errors.New("access denied")
	err := s.Delete(context.Background(), "photos/a.jpg")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrObjectNotFound)
}
