package stream

import (
	"fmt"
	"os"
)

// File is an opened local file that knows its size.
// The caller that opens a File closes it.
type File struct {
	*os.File
	size int64
}

// OpenFile opens path read-only.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &File{File: f, size: info.Size()}, nil
}

// Size returns the file size at open time.
func (f *File) Size() int64 {
	return f.size
}
