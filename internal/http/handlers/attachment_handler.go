package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/market-backoffice/internal/dto"
	"github.com/ignatzorin/market-backoffice/internal/http/handlers/common"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/storage"
)

// Разрешённые типы вложений: изображения и PDF
var allowedAttachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// sniffSize: столько байт нужно filetype для определения типа.
const sniffSize = 261

// FileOpener отдаёт файлы локального хранилища.
type FileOpener interface {
	Open(ctx context.Context, key string) (*os.File, error)
}

// AttachmentHandler принимает вложения к заметкам по спорам.
type AttachmentHandler struct {
	storage storage.AttachmentStorage
	opener  FileOpener
	linkTTL time.Duration
}

// NewAttachmentHandler создаёт хэндлер; opener нужен только для локального хранилища.
func NewAttachmentHandler(s storage.AttachmentStorage, opener FileOpener, linkTTL time.Duration) *AttachmentHandler {
	if linkTTL <= 0 {
		linkTTL = 15 * time.Minute
	}
	return &AttachmentHandler{storage: s, opener: opener, linkTTL: linkTTL}
}

// Upload POST /api/admin/attachments (multipart, поле file)
// Возвращает ключ, который передаётся в attachments при добавлении заметки.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	actor := common.CurrentAdmin(c)
	if actor == nil {
		common.RespondAppError(c, apperror.ErrUnauthenticated)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondAppError(c, apperror.New(apperror.ErrCodeValidation, "файл обязателен (поле file)"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "не удалось прочитать файл"))
		return
	}
	defer file.Close()

	// Проверяем магические байты (реальный тип файла)
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "не удалось прочитать файл"))
		return
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		common.RespondAppError(c, apperror.New(apperror.ErrCodeValidation, "не удалось определить тип файла"))
		return
	}
	contentType := kind.MIME.Value
	if !allowedAttachmentTypes[contentType] {
		common.RespondAppError(c, apperror.Newf(apperror.ErrCodeValidation,
			"неподдерживаемый тип файла (%s). Разрешены: %s", contentType, strings.Join(allowedTypesList(), ", ")))
		return
	}

	body := io.MultiReader(bytes.NewReader(head), file)
	key, err := h.storage.Save(c.Request.Context(), actor.ID, fileHeader.Filename, contentType, fileHeader.Size, body)
	if errors.Is(err, storage.ErrTooLarge) {
		common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "файл слишком большой"))
		return
	}
	if err != nil {
		common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить файл"))
		return
	}

	resp := dto.AttachmentResponse{Key: key, ContentType: contentType, Size: fileHeader.Size}
	if link, err := h.storage.URL(c.Request.Context(), key, h.linkTTL); err == nil {
		resp.URL = link
	}
	common.RespondCreated(c, resp)
}

// Download GET /api/admin/attachments/:owner/:name
func (h *AttachmentHandler) Download(c *gin.Context) {
	if h.opener == nil {
		common.RespondAppError(c, apperror.New(apperror.ErrCodeNotFound, "файл не найден"))
		return
	}

	key := c.Param("owner") + "/" + c.Param("name")
	f, err := h.opener.Open(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeNotFound, "файл не найден"))
		return
	}
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		common.RespondAppError(c, fmt.Errorf("attachment stat: %w", err))
		return
	}
	c.Header("Content-Disposition", "inline")
	c.DataFromReader(200, info.Size(), detectType(f), f, nil)
}

// Delete DELETE /api/admin/attachments/:owner/:name
// Удалить файл может загрузивший его администратор или super_admin.
func (h *AttachmentHandler) Delete(c *gin.Context) {
	actor := common.CurrentAdmin(c)
	if actor == nil {
		common.RespondAppError(c, apperror.ErrUnauthenticated)
		return
	}
	owner, err := common.ParseUUIDParam(c, "owner")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if owner != actor.ID && !actor.IsSuperAdmin() {
		common.RespondAppError(c, apperror.New(apperror.ErrCodeUnauthorized, "можно удалять только свои вложения"))
		return
	}

	key := owner.String() + "/" + c.Param("name")
	if err := h.storage.Delete(c.Request.Context(), key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeNotFound, "файл не найден"))
			return
		}
		common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось удалить файл"))
		return
	}
	common.RespondOK(c, gin.H{"key": key})
}

// detectType определяет тип по первым байтам и возвращает файл в начало.
func detectType(f *os.File) string {
	head := make([]byte, sniffSize)
	n, _ := io.ReadFull(f, head)
	_, _ = f.Seek(0, io.SeekStart)
	if kind, err := filetype.Match(head[:n]); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}

func allowedTypesList() []string {
	types := make([]string, 0, len(allowedAttachmentTypes))
	for t := range allowedAttachmentTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
