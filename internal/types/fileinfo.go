package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrNotText is returned by Load when the file cannot be decoded as text.
// Such files are copied verbatim instead of being cleaned.
var ErrNotText = errors.New("file is not valid UTF-8 text")

// FileInfo represents a file being processed
type FileInfo struct {
	InputPath string
	Filename  string
	Mode      fs.FileMode
	Doc       *Document
}

// NewFileInfo creates a new FileInfo instance
func NewFileInfo(inputPath string) *FileInfo {
	return &FileInfo{
		InputPath: inputPath,
		Filename:  filepath.Base(inputPath),
		Mode:      0644,
	}
}

// Load reads the file and decodes it into a Document
func (f *FileInfo) Load() error {
	info, err := os.Stat(f.InputPath)
	if err != nil {
		return err
	}
	f.Mode = info.Mode().Perm()

	data, err := os.ReadFile(f.InputPath)
	if err != nil {
		return err
	}

	text, err := DecodeText(data)
	if err != nil {
		return fmt.Errorf("%s: %w", f.InputPath, err)
	}
	f.Doc = ParseDocument(text)
	return nil
}

// DecodeText returns data as a string if it is UTF-8 text without NUL bytes
func DecodeText(data []byte) (string, error) {
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) != -1 {
		return "", ErrNotText
	}
	return string(data), nil
}

// IsMarkdown reports whether the file is a Markdown hand-out
func (f *FileInfo) IsMarkdown() bool {
	ext := strings.ToLower(filepath.Ext(f.Filename))
	return ext == ".md" || ext == ".markdown" || ext == ".mdown"
}

// WriteDocument writes doc to path with the source file's permissions.
// The target directory must already exist.
func (f *FileInfo) WriteDocument(path string, doc *Document) error {
	return os.WriteFile(path, []byte(doc.String()), f.Mode)
}

// CopyTo copies the file byte for byte to dst, preserving its permissions
func (f *FileInfo) CopyTo(dst string) error {
	sourceFile, err := os.Open(f.InputPath)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, sourceInfo.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	if err := destFile.Close(); err != nil {
		return err
	}

	// OpenFile applies the umask, so set the mode explicitly
	return os.Chmod(dst, sourceInfo.Mode().Perm())
}
