package validation

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

// Константы валидации
const (
	MaxReasonLength     = 1000
	MaxResolutionLength = 5000
	MaxNoteLength       = 5000
	MaxAttachments      = 10
	MaxAttachmentKey    = 500
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.Newf(apperror.ErrCodeValidation, "%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return apperror.Newf(apperror.ErrCodeValidation, "%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// RequiredText обрезает пробелы и проверяет, что текст задан и не длиннее max.
// emptyMessage показывается администратору, если текста нет.
func RequiredText(fieldName, emptyMessage, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperror.New(apperror.ErrCodeValidation, emptyMessage)
	}
	if err := ValidateLength(fieldName, value, 0, max); err != nil {
		return "", err
	}
	return value, nil
}

// OptionalText обрезает пробелы; пустая строка допустима.
func OptionalText(fieldName, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if err := ValidateLength(fieldName, value, 0, max); err != nil {
		return "", err
	}
	return value, nil
}

// Reason обязательная причина действия модератора.
func Reason(emptyMessage, value string) (string, error) {
	return RequiredText("причина", emptyMessage, value, MaxReasonLength)
}

// Attachments нормализует список вложений: пустые убираются, дубликаты схлопываются.
// Элемент либо ключ хранилища, либо http(s) ссылка.
func Attachments(items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		if err := ValidateLength("вложение", item, 0, MaxAttachmentKey); err != nil {
			return nil, err
		}
		if strings.Contains(item, "://") {
			if err := validateLink(item); err != nil {
				return nil, err
			}
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) > MaxAttachments {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "не более %d вложений", MaxAttachments)
	}
	return out, nil
}

func validateLink(link string) error {
	parsedURL, err := url.Parse(link)
	if err != nil {
		return apperror.New(apperror.ErrCodeValidation, "некорректный формат URL вложения")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return apperror.New(apperror.ErrCodeValidation, "ссылка должна начинаться с http:// или https://")
	}
	if parsedURL.Host == "" {
		return apperror.New(apperror.ErrCodeValidation, "ссылка должна содержать доменное имя")
	}
	return nil
}
