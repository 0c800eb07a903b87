package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge возвращается, если файл больше допустимого размера.
var ErrTooLarge = errors.New("storage: файл превышает допустимый размер")

// ErrNotFound возвращается, если объекта с таким ключом нет.
var ErrNotFound = errors.New("storage: файл не найден")

// AttachmentStorage хранит вложения к спорам и выдаёт на них ссылки.
type AttachmentStorage interface {
	Save(ctx context.Context, owner uuid.UUID, name, contentType string, size int64, r io.Reader) (string, error)
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// objectKey строит ключ вида <owner>/<случайный префикс>_<unixnano><ext>.
func objectKey(owner uuid.UUID, name string, now time.Time) string {
	return owner.String() + "/" + uuid.NewString()[:8] + "_" + itoa(now.UnixNano()) + strings.ToLower(filepath.Ext(sanitizeFilename(name)))
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" || name == "." {
		name = "attachment"
	}
	return name
}

// validKey отсекает ключи, выходящие за пределы хранилища.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return false
	}
	parts := strings.Split(key, "/")
	if len(parts) != 2 {
		return false
	}
	_, err := uuid.Parse(parts[0])
	return err == nil && parts[1] != ""
}
