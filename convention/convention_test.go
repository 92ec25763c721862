package convention_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

type Book struct {
	ID       uuid.UUID `json:"id" required:"true"`
	Title    string    `json:"title" required:"true"`
	AuthorID uuid.UUID `json:"author_id"`
}

type NewBook struct {
	Title string `json:"title" required:"true" maxLength:"40"`
}

type BookID struct {
	ID uuid.UUID `path:"book_id"`
}

type SearchBooks struct {
	rest.Page
	Title string `query:"title"`
}

type ReplaceBook struct {
	ID   uuid.UUID `path:"book_id"`
	Body NewBook
}

type BookPatch struct {
	Title *string `json:"title,omitempty"`
}

type UpdateBook struct {
	ID   uuid.UUID `path:"book_id"`
	Body BookPatch
}

type Author struct {
	ID   uuid.UUID `json:"id" required:"true"`
	Name string    `json:"name" required:"true"`
}

type AuthorID struct {
	ID uuid.UUID `path:"author_id"`
}

type AuthorBooks struct {
	rest.Page
	AuthorID uuid.UUID `path:"author_id"`
}

type NewAuthorBook struct {
	AuthorID uuid.UUID `path:"author_id"`
	Body     NewBook
}

type Upload struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
	Caption  string `json:"caption,omitempty"`
}

type CoverUpload struct {
	File    rest.FileUpload `form:"file" required:"true"`
	Caption string          `form:"caption"`
}

type PortraitUpload struct {
	AuthorID uuid.UUID       `path:"author_id"`
	File     rest.FileUpload `form:"file"`
}

// library is an in-memory store of books and authors.
type library struct {
	mu      sync.Mutex
	books   []Book
	authors map[uuid.UUID]Author
}

func newLibrary() *library {
	return &library{authors: make(map[uuid.UUID]Author)}
}

func (l *library) addAuthor(name string) Author {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := Author{ID: uuid.New(), Name: name}
	l.authors[a.ID] = a
	return a
}

func (l *library) addBook(title string, author uuid.UUID) Book {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := Book{ID: uuid.New(), Title: title, AuthorID: author}
	l.books = append(l.books, b)
	return b
}

func (l *library) book(id uuid.UUID) (int, error) {
	i := slices.IndexFunc(l.books, func(b Book) bool { return b.ID == id })
	if i < 0 {
		return 0, rest.Error(http.StatusNotFound, "book not found")
	}
	return i, nil
}

func (l *library) search(match func(Book) bool, page rest.Page) ([]Book, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var found []Book
	for _, b := range l.books {
		if match(b) {
			found = append(found, b)
		}
	}
	count := len(found)
	start := min(page.Offset, count)
	end := min(start+page.Limit, count)
	return found[start:end], count
}

func (l *library) searchBooks(_ context.Context, q *SearchBooks) ([]Book, int, error) {
	items, count := l.search(func(b Book) bool {
		return q.Title == "" || strings.Contains(b.Title, q.Title)
	}, q.Page)
	return items, count, nil
}

func (l *library) authorBooks(_ context.Context, q *AuthorBooks) ([]Book, int, error) {
	l.mu.Lock()
	_, ok := l.authors[q.AuthorID]
	l.mu.Unlock()
	if !ok {
		return nil, 0, rest.Error(http.StatusNotFound, "author not found")
	}

	items, count := l.search(func(b Book) bool { return b.AuthorID == q.AuthorID }, q.Page)
	return items, count, nil
}

func newRouter(opts ...func(*rest.Config)) *rest.Router {
	cfg := rest.DefaultConfig()
	cfg.Route.EnableAudit = false
	for _, opt := range opts {
		opt(&cfg)
	}
	return rest.New(rest.WithConfig(cfg), rest.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
}

func readUpload(f *rest.FileUpload) (Upload, error) {
	rc, err := f.Open()
	if err != nil {
		return Upload{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Filename: f.Filename, Size: f.Size, Content: string(data)}, nil
}

// multipartBody builds a form with one file and optional fields.
func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
