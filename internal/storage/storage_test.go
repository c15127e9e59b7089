package storage_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestPhotoKey(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	key := storage.PhotoKey(taskID, ".JPG")

	prefix := "photos/" + taskID.String() + "/task_" + taskID.String() + "_"
	assert.True(t, strings.HasPrefix(key, prefix), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.NotEqual(t, key, storage.PhotoKey(taskID, "jpg"), "keys are unique")
}
