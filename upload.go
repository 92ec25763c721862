package rest

import (
	"errors"
	"io"
	"mime/multipart"
)

// FileUpload holds a parsed file from a multipart form upload. Tag a field
// of this type (or []FileUpload) with `form:"name"` in the request type of
// an Upload or UploadFor route.
type FileUpload struct {
	Filename string
	Size     int64
	Header   *multipart.FileHeader
	file     multipart.File
}

// Open returns a reader for the uploaded file contents.
func (f *FileUpload) Open() (io.ReadCloser, error) {
	if f.file != nil {
		return f.file, nil
	}
	if f.Header == nil {
		return nil, errors.New("no file header")
	}
	file, err := f.Header.Open()
	if err != nil {
		return nil, err
	}
	f.file = file
	return file, nil
}

// ContentType returns the content type sent by the client for the file.
func (f *FileUpload) ContentType() string {
	if f.Header == nil {
		return ""
	}
	return f.Header.Header.Get("Content-Type")
}
