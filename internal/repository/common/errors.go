package common

import "errors"

// Общие ошибки для всех репозиториев
var (
	ErrNotFound = errors.New("entity not found")
	// ErrStaleState условная запись не затронула ни одной строки:
	// состояние успели изменить конкурентным запросом.
	ErrStaleState = errors.New("stale state: conditional update affected no rows")
	// ErrInsufficientFunds условное списание не прошло из-за нехватки баланса.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
