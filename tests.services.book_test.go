package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func storedBook() Book {
	published := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	return Book{ID: 1, Title: "T", ISBN: "1234567890", PublicationDate: &published, AuthorID: 1}
}

// newBookStorageMock returns a storage holding a single book with id 1.
func newBookStorageMock() *MockBookStorage {
	return &MockBookStorage{
		FindByIDFunc: func(ctx context.Context, id int64) (Book, error) {
			if id == 1 {
				return storedBook(), nil
			}
			return Book{}, ErrRecordNotFound
		},
		FindAllFunc: func(ctx context.Context) ([]Book, error) {
			return []Book{storedBook()}, nil
		},
		FindByAuthorIDFunc: func(ctx context.Context, authorID int64) ([]Book, error) {
			return []Book{storedBook()}, nil
		},
		ExistsByISBNFunc: func(ctx context.Context, isbn string) (bool, error) {
			return isbn == "1234567890", nil
		},
		SaveFunc: func(ctx context.Context, book Book) (Book, error) {
			if book.ID == 0 {
				book.ID = 2
			}
			return book, nil
		},
		DeleteByIDFunc: func(ctx context.Context, id int64) error {
			return nil
		},
	}
}

// newTestBookService wires a book service on top of mocked storages.
func newTestBookService(books *MockBookStorage, authors *MockAuthorStorage) BookServiceProvider {
	return NewBookService(zap.NewNop(), books, NewAuthorService(zap.NewNop(), authors))
}

func TestBookService_Create(t *testing.T) {
	t.Run("should pass: free isbn and existing author", func(t *testing.T) {
		books := newBookStorageMock()
		var saved Book
		books.SaveFunc = func(ctx context.Context, book Book) (Book, error) {
			saved = book
			book.ID = 2
			return book, nil
		}
		bs := newTestBookService(books, newAuthorStorageMock())
		id, err := bs.Create(context.Background(), BookInput{
			Title:           "Notes",
			Description:     "on the analytical engine",
			ISBN:            "2000000010",
			PublicationDate: "1843-10-01",
			AuthorID:        1,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)
		assert.Equal(t, int64(1), saved.AuthorID)
		require.NotNil(t, saved.PublicationDate)
		assert.Equal(t, "1843-10-01", saved.PublicationDate.Format(DateLayout))
	})

	t.Run("should fail: duplicated isbn wins over unknown author", func(t *testing.T) {
		books := newBookStorageMock()
		authors := newAuthorStorageMock()
		authorLookups := 0
		authors.FindByIDFunc = func(ctx context.Context, id int64) (Author, error) {
			authorLookups++
			return Author{}, ErrRecordNotFound
		}
		bs := newTestBookService(books, authors)
		_, err := bs.Create(context.Background(), BookInput{Title: "T2", ISBN: "1234567890", AuthorID: 9})
		assert.ErrorIs(t, err, ErrIsbnDuplication)
		assert.Equal(t, 0, authorLookups)
		assert.Equal(t, 0, books.SaveCalls)
	})

	t.Run("should fail: free isbn and unknown author", func(t *testing.T) {
		books := newBookStorageMock()
		bs := newTestBookService(books, newAuthorStorageMock())
		_, err := bs.Create(context.Background(), BookInput{Title: "T2", ISBN: "2000000010", AuthorID: 9})
		assert.ErrorIs(t, err, ErrAuthorNotFound)
		assert.Equal(t, 0, books.SaveCalls)
	})

	t.Run("should fail: author deleted before the write", func(t *testing.T) {
		books := newBookStorageMock()
		books.SaveFunc = func(ctx context.Context, book Book) (Book, error) {
			return Book{}, ErrReferenceViolation
		}
		bs := newTestBookService(books, newAuthorStorageMock())
		_, err := bs.Create(context.Background(), BookInput{Title: "T2", ISBN: "2000000010", AuthorID: 1})
		assert.ErrorIs(t, err, ErrAuthorNotFound)
	})

	t.Run("should fail: isbn taken between probe and save", func(t *testing.T) {
		books := newBookStorageMock()
		books.SaveFunc = func(ctx context.Context, book Book) (Book, error) {
			return Book{}, ErrUniqueViolation
		}
		bs := newTestBookService(books, newAuthorStorageMock())
		_, err := bs.Create(context.Background(), BookInput{Title: "T2", ISBN: "2000000010", AuthorID: 1})
		assert.ErrorIs(t, err, ErrIsbnDuplication)
	})

	t.Run("should fail: invalid inputs", func(t *testing.T) {
		testCases := []struct {
			name  string
			input BookInput
			field string
		}{
			{"blank title", BookInput{Title: " ", ISBN: "2000000010", AuthorID: 1}, "title"},
			{"isbn of zeros", BookInput{Title: "T", ISBN: "0000000000", AuthorID: 1}, "isbn"},
			{"isbn not ending with 0", BookInput{Title: "T", ISBN: "1234567891", AuthorID: 1}, "isbn"},
			{"isbn prefix above 90", BookInput{Title: "T", ISBN: "9100000000", AuthorID: 1}, "isbn"},
			{"isbn too short", BookInput{Title: "T", ISBN: "123456780", AuthorID: 1}, "isbn"},
			{"missing author", BookInput{Title: "T", ISBN: "2000000010"}, "authorId"},
			{"malformed date", BookInput{Title: "T", ISBN: "2000000010", AuthorID: 1, PublicationDate: "15/01/2020"}, "publicationDate"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				books := newBookStorageMock()
				bs := newTestBookService(books, newAuthorStorageMock())
				_, err := bs.Create(context.Background(), tc.input)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				require.Len(t, verr.Fields, 1)
				assert.Equal(t, tc.field, verr.Fields[0].Field)
				assert.Equal(t, 0, books.ExistsByISBNCalls)
			})
		}
	})
}

func TestBookService_Get(t *testing.T) {
	bs := newTestBookService(newBookStorageMock(), newAuthorStorageMock())

	view, err := bs.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, BookView{ID: 1, Title: "T", ISBN: "1234567890", PublicationDate: "2020-01-15", AuthorID: 1}, view)

	_, err = bs.Get(context.Background(), 5)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBookService_ListBooksByAuthor(t *testing.T) {
	bs := newTestBookService(newBookStorageMock(), newAuthorStorageMock())

	views, err := bs.ListBooksByAuthor(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	_, err = bs.ListBooksByAuthor(context.Background(), 3)
	assert.ErrorIs(t, err, ErrAuthorNotFound)
}

func TestBookService_Update(t *testing.T) {
	t.Run("should pass: unchanged isbn is not probed but author is resolved", func(t *testing.T) {
		books := newBookStorageMock()
		authors := newAuthorStorageMock()
		authorLookups := 0
		authors.FindByIDFunc = func(ctx context.Context, id int64) (Author, error) {
			authorLookups++
			return storedAuthor(), nil
		}
		bs := newTestBookService(books, authors)
		err := bs.Update(context.Background(), 1, BookInput{Title: "T", ISBN: "1234567890", AuthorID: 1})
		require.NoError(t, err)
		assert.Equal(t, 0, books.ExistsByISBNCalls)
		assert.Equal(t, 1, authorLookups)
		assert.Equal(t, 1, books.SaveCalls)
	})

	t.Run("should pass: full overwrite clears the publication date", func(t *testing.T) {
		books := newBookStorageMock()
		var saved Book
		books.SaveFunc = func(ctx context.Context, book Book) (Book, error) {
			saved = book
			return book, nil
		}
		bs := newTestBookService(books, newAuthorStorageMock())
		err := bs.Update(context.Background(), 1, BookInput{Title: "New", ISBN: "1234567890", AuthorID: 1})
		require.NoError(t, err)
		assert.Equal(t, Book{ID: 1, Title: "New", ISBN: "1234567890", AuthorID: 1}, saved)
	})

	t.Run("should fail: changed isbn already taken", func(t *testing.T) {
		books := newBookStorageMock()
		books.ExistsByISBNFunc = func(ctx context.Context, isbn string) (bool, error) {
			return true, nil
		}
		bs := newTestBookService(books, newAuthorStorageMock())
		err := bs.Update(context.Background(), 1, BookInput{Title: "T", ISBN: "2000000010", AuthorID: 1})
		assert.ErrorIs(t, err, ErrIsbnDuplication)
		assert.Equal(t, 1, books.ExistsByISBNCalls)
	})

	t.Run("should fail: unknown book", func(t *testing.T) {
		bs := newTestBookService(newBookStorageMock(), newAuthorStorageMock())
		err := bs.Update(context.Background(), 8, BookInput{Title: "T", ISBN: "1234567890", AuthorID: 1})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("should fail: unknown new author", func(t *testing.T) {
		books := newBookStorageMock()
		bs := newTestBookService(books, newAuthorStorageMock())
		err := bs.Update(context.Background(), 1, BookInput{Title: "T", ISBN: "1234567890", AuthorID: 4})
		assert.ErrorIs(t, err, ErrAuthorNotFound)
		assert.Equal(t, 0, books.SaveCalls)
	})

	t.Run("should fail: book removed before the save", func(t *testing.T) {
		books := newBookStorageMock()
		books.SaveFunc = func(ctx context.Context, book Book) (Book, error) {
			return Book{}, ErrRecordNotFound
		}
		bs := newTestBookService(books, newAuthorStorageMock())
		err := bs.Update(context.Background(), 1, BookInput{Title: "T", ISBN: "1234567890", AuthorID: 1})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestBookService_Delete(t *testing.T) {
	books := newBookStorageMock()
	bs := newTestBookService(books, newAuthorStorageMock())
	assert.NoError(t, bs.Delete(context.Background(), 1))
	assert.NoError(t, bs.Delete(context.Background(), 1000))
}
