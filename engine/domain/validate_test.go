package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func validDoc() Document {
	return Document{
		DocumentID:   uuid.New(),
		ProjectName:  "demo",
		ContentHash:  "deadbeef",
		FilePath:     "src/main.go",
		DocumentType: DocumentCode,
		IndexedAt:    time.Now(),
	}
}

func TestValidateDocumentHappyPath(t *testing.T) {
	if err := ValidateDocument(validDoc(), 1024, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDocumentEmptyProjectName(t *testing.T) {
	d := validDoc()
	d.ProjectName = ""
	err := ValidateDocument(d, 1024, nil)
	if !errors.Is(err, ErrEmptyProjectName) {
		t.Fatalf("expected ErrEmptyProjectName, got %v", err)
	}
}

func TestValidateDocumentUnknownType(t *testing.T) {
	d := validDoc()
	d.DocumentType = "unknown"
	err := ValidateDocument(d, 1024, nil)
	if !errors.Is(err, ErrUnknownDocumentType) {
		t.Fatalf("expected ErrUnknownDocumentType, got %v", err)
	}
}

func TestValidateFilePathRejectsTraversal(t *testing.T) {
	err := ValidateFilePath("../../etc/passwd", nil)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
}

func TestValidateFilePathRejectsNullByte(t *testing.T) {
	err := ValidateFilePath("src/main\x00.go", nil)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
}

func TestValidateFilePathEnforcesAllowedBase(t *testing.T) {
	err := ValidateFilePath("/etc/passwd", []string{"/srv/repos"})
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath for path outside allowed bases, got %v", err)
	}
	if err := ValidateFilePath("/srv/repos/demo/main.go", []string{"/srv/repos"}); err != nil {
		t.Fatalf("expected path within allowed base to pass, got %v", err)
	}
}

func TestValidateContentSizeBoundary(t *testing.T) {
	if err := ValidateContentSize(1024, 1024); err != nil {
		t.Fatalf("content exactly at the limit must be accepted, got %v", err)
	}
	err := ValidateContentSize(1025, 1024)
	if !errors.Is(err, ErrContentTooLarge) {
		t.Fatalf("content one byte over the limit must be rejected, got %v", err)
	}
}

func TestNormalizeLanguageDefaultsToUnknown(t *testing.T) {
	if got := NormalizeLanguage(""); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
	if got := NormalizeLanguage("  Go  "); got != "go" {
		t.Fatalf("expected trimmed lowercase, got %q", got)
	}
}

func TestNormalizeStripsTrailingWhitespaceAndCRLF(t *testing.T) {
	a := Normalize("line one  \r\nline two\t\r\n")
	b := Normalize("line one\nline two\n")
	if string(a) != string(b) {
		t.Fatalf("expected normalized forms to match, got %q vs %q", a, b)
	}
}

func TestIsUnchangedRequiresMatchingHashAndCompletedStatus(t *testing.T) {
	d := validDoc()
	d.EnrichmentStatus = EnrichmentCompleted
	d.EnrichmentContentHash = d.ContentHash
	if !IsUnchanged(d) {
		t.Fatal("expected unchanged document to be detected")
	}

	d.EnrichmentContentHash = "different"
	if IsUnchanged(d) {
		t.Fatal("expected mismatched hash to not be unchanged")
	}

	d.EnrichmentContentHash = d.ContentHash
	d.EnrichmentStatus = EnrichmentPending
	if IsUnchanged(d) {
		t.Fatal("expected pending status to not be unchanged")
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("field", "value", ErrUnsafePath)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatal("expected errors.Is to see through ValidationError")
	}
}
