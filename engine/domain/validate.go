package domain

import (
	"fmt"
	"strings"
)

const maxFilePathBytes = 4096

// ValidateDocument checks a Document against the pipeline's entry-point
// invariants: required fields, a recognized document type, a safe file
// path, and a content size bound.
func ValidateDocument(d Document, maxContentBytes int64, allowedBasePaths []string) error {
	if strings.TrimSpace(d.ProjectName) == "" {
		return NewValidationError("project_name", d.ProjectName, ErrEmptyProjectName)
	}
	if strings.TrimSpace(d.FilePath) == "" {
		return NewValidationError("file_path", d.FilePath, ErrEmptyFilePath)
	}
	if len(d.FilePath) > maxFilePathBytes {
		return NewValidationError("file_path", d.FilePath, ErrFilePathTooLong)
	}
	if !ValidDocumentTypes[d.DocumentType] {
		return NewValidationError("document_type", string(d.DocumentType), ErrUnknownDocumentType)
	}
	if err := ValidateFilePath(d.FilePath, allowedBasePaths); err != nil {
		return err
	}
	if err := ValidateContentSize(int64(len(d.Content)), maxContentBytes); err != nil {
		return err
	}
	return nil
}

// ValidateFilePath rejects path traversal, embedded null bytes, and
// absolute paths outside allowedBasePaths. An empty allowedBasePaths means
// no base-path restriction is enforced (any non-traversing relative or
// absolute path is accepted).
func ValidateFilePath(path string, allowedBasePaths []string) error {
	if strings.Contains(path, "\x00") {
		return NewValidationError("file_path", path, ErrUnsafePath)
	}
	if strings.Contains(path, "..") {
		return NewValidationError("file_path", path, ErrUnsafePath)
	}
	if len(allowedBasePaths) > 0 && strings.HasPrefix(path, "/") {
		allowed := false
		for _, base := range allowedBasePaths {
			if strings.HasPrefix(path, base) {
				allowed = true
				break
			}
		}
		if !allowed {
			return NewValidationError("file_path", path, ErrUnsafePath)
		}
	}
	return nil
}

// ValidateContentSize enforces MAX_CONTENT_SIZE_BYTES. Content exactly at
// the limit is accepted; one byte over is rejected.
func ValidateContentSize(size, maxBytes int64) error {
	if size > maxBytes {
		return NewValidationError("content", fmt.Sprintf("%d bytes", size), ErrContentTooLarge)
	}
	return nil
}

// NormalizeLanguage lowercases and trims a language tag, returning "unknown"
// for an empty value so downstream stages can mark it for auto-detect
// rather than treat it as a validation failure.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "unknown"
	}
	return lang
}
