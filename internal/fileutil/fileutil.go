package fileutil

import (
	"fmt"
	"io"
	"os"
)

// IsRegular reports whether path resolves, through any symlinks, to a regular file.
func IsRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadTail returns at most n bytes from the end of the file open as f.
func ReadTail(f *os.File, n int64) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	size := info.Size()
	offset := int64(0)
	if n > 0 && size > n {
		offset = size - n
	}
	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read: %w", err)
	}
	return buf, nil
}
