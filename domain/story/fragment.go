// Package story holds the core entities of the collaborative story:
// fragments submitted by users, the bounded window of fragments that feeds
// composition, and the composed story derived from it.
package story

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	appErrors "conexiones-backend/pkg/errors"
)

const (
	// MinKeywordLength is the minimum keyword length after trimming
	MinKeywordLength = 1
	// MaxKeywordLength is the maximum keyword length after trimming
	MaxKeywordLength = 48
	// MinContentLength is the minimum content length after trimming
	MinContentLength = 1
	// MaxContentLength is the maximum content length after trimming
	MaxContentLength = 500
)

// Fragment is a single user-contributed unit of text. ID and CreatedAt are
// assigned by the store at creation and never change.
type Fragment struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSubmission validates and normalizes user input for a new fragment.
// It returns the trimmed keyword and content, or a validation error when
// either field is out of bounds. Validation happens before any network call.
func NewSubmission(keyword, content string) (string, string, error) {
	trimmedKeyword := strings.TrimSpace(keyword)
	trimmedContent := strings.TrimSpace(content)

	// Bounds count characters, not bytes: accented text must not lose
	// length budget to multibyte encoding.
	keywordLen := utf8.RuneCountInString(trimmedKeyword)
	contentLen := utf8.RuneCountInString(trimmedContent)

	if keywordLen < MinKeywordLength || keywordLen > MaxKeywordLength {
		return "", "", appErrors.NewValidation(
			fmt.Sprintf("keyword must be between %d and %d characters", MinKeywordLength, MaxKeywordLength))
	}
	if contentLen < MinContentLength || contentLen > MaxContentLength {
		return "", "", appErrors.NewValidation(
			fmt.Sprintf("content must be between %d and %d characters", MinContentLength, MaxContentLength))
	}

	return trimmedKeyword, trimmedContent, nil
}
