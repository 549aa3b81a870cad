package core

import (
	"io"
	"mime/multipart"
	"os"
)

// Source is a named tabular input, a file on disk or an uploaded form file
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource reads a path on the local file system
type FileSource string

func (f FileSource) Name() string { return string(f) }

func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

// UploadSource reads a multipart form file
type UploadSource struct {
	Header *multipart.FileHeader
}

func (u UploadSource) Name() string { return u.Header.Filename }

func (u UploadSource) Open() (io.ReadCloser, error) { return u.Header.Open() }
