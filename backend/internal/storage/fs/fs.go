package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Pack144/packman-sub000/shared/domain"
	internal_errors "github.com/Pack144/packman-sub000/shared/errors"
)

// Storage keeps message attachments under a root directory. A file
// reference is the slash-separated path relative to that root.
type Storage struct {
	rootPath string
}

func New(rootPath string) (*Storage, error) {
	p := filepath.Clean(rootPath)
	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachment root %s: %w", p, err)
	}
	return &Storage{rootPath: p}, nil
}

// Save stores an uploaded file under the message's directory and returns
// its reference.
func (s *Storage) Save(data io.Reader, msgId domain.MessageId, filename string) (domain.FileRef, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return "", internal_errors.BadRequest("Attachment needs a file name")
	}
	ref := msgId.String() + "/" + name

	fullPath, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create attachment directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, data); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to copy attachment data: %w", err)
	}
	return ref, nil
}

// Open resolves a reference to its bytes.
func (s *Storage) Open(ref domain.FileRef) (io.ReadCloser, error) {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, internal_errors.NotFound("Attachment " + ref)
		}
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return f, nil
}

// Size reports the stored size of a reference in bytes.
func (s *Storage) Size(ref domain.FileRef) (int64, error) {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, internal_errors.NotFound("Attachment " + ref)
		}
		return 0, fmt.Errorf("failed to stat attachment: %w", err)
	}
	return info.Size(), nil
}

// resolve maps a reference into the root, rejecting anything that would
// escape it.
func (s *Storage) resolve(ref domain.FileRef) (string, error) {
	if ref == "" || strings.HasPrefix(ref, "/") || strings.Contains(ref, "\\") {
		return "", internal_errors.BadRequest("Invalid attachment reference")
	}
	fullPath := filepath.Join(s.rootPath, filepath.FromSlash(ref))
	rel, err := filepath.Rel(s.rootPath, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", internal_errors.BadRequest("Invalid attachment reference")
	}
	return fullPath, nil
}
