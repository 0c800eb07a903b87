package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveOpenDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/api/admin/attachments/", 1)
	require.NoError(t, err)
	ctx := context.Background()
	owner := uuid.New()

	key, err := s.Save(ctx, owner, "../../etc/Receipt.PNG", "image/png", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, owner.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	link, err := s.URL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "/api/admin/attachments/"+key, link)

	f, err := s.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(body))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_RejectsLargeFiles(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/files", 1)
	require.NoError(t, err)

	big := bytes.Repeat([]byte("a"), 1024*1024+1)
	_, err = s.Save(context.Background(), uuid.New(), "big.pdf", "application/pdf", int64(len(big)), bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestValidKey(t *testing.T) {
	owner := uuid.NewString()
	assert.True(t, validKey(owner+"/file.png"))
	assert.False(t, validKey("../"+owner+"/file.png"))
	assert.False(t, validKey("/"+owner+"/file.png"))
	assert.False(t, validKey("not-a-uuid/file.png"))
	assert.False(t, validKey(owner+"/nested/file.png"))
}
