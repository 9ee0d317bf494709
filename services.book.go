package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// BookServiceProvider owns the book lifecycle and its invariants.
type BookServiceProvider interface {
	Create(ctx context.Context, input BookInput) (int64, error)
	Get(ctx context.Context, id int64) (BookView, error)
	List(ctx context.Context) ([]BookView, error)
	ListBooksByAuthor(ctx context.Context, authorID int64) ([]BookView, error)
	Update(ctx context.Context, id int64, input BookInput) error
	Delete(ctx context.Context, id int64) error
}

type BookService struct {
	logger  *zap.Logger
	storage BookStorage
	authors AuthorServiceProvider
}

func NewBookService(logger *zap.Logger, storage BookStorage, authors AuthorServiceProvider) BookServiceProvider {
	return &BookService{
		logger:  logger,
		storage: storage,
		authors: authors,
	}
}

// Create registers a new book. The isbn is checked before the author so
// that a taken isbn is reported even when the author is unknown too.
func (bs *BookService) Create(ctx context.Context, input BookInput) (int64, error) {
	if err := ValidateInput(input); err != nil {
		return 0, err
	}
	if err := bs.ensureISBNAvailable(ctx, input.ISBN); err != nil {
		return 0, err
	}
	author, err := bs.authors.Get(ctx, input.AuthorID)
	if err != nil {
		return 0, err
	}

	book, err := newBook(input, author)
	if err != nil {
		return 0, err
	}
	book, err = bs.storage.Save(ctx, book)
	if err != nil {
		return 0, bs.translateWriteError(err)
	}
	bs.logger.Info("service: book created", zap.Int64("book.id", book.ID), zap.Int64("author.id", book.AuthorID))
	return book.ID, nil
}

// Get returns the book with the given id.
func (bs *BookService) Get(ctx context.Context, id int64) (BookView, error) {
	book, err := bs.find(ctx, id)
	if err != nil {
		return BookView{}, err
	}
	return book.View(), nil
}

// List returns every book.
func (bs *BookService) List(ctx context.Context) ([]BookView, error) {
	books, err := bs.storage.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list books: %w", err)
	}
	return views(books), nil
}

// ListBooksByAuthor returns the books written by an existing author.
func (bs *BookService) ListBooksByAuthor(ctx context.Context, authorID int64) ([]BookView, error) {
	if _, err := bs.authors.Get(ctx, authorID); err != nil {
		return nil, err
	}
	books, err := bs.storage.FindByAuthorID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list books of author %d: %w", authorID, err)
	}
	return views(books), nil
}

// Update fully overwrites an existing book. The isbn uniqueness is only
// probed when the isbn changes but the author is always resolved again.
func (bs *BookService) Update(ctx context.Context, id int64, input BookInput) error {
	if err := ValidateInput(input); err != nil {
		return err
	}
	current, err := bs.find(ctx, id)
	if err != nil {
		return err
	}

	if current.ISBN != input.ISBN {
		if err = bs.ensureISBNAvailable(ctx, input.ISBN); err != nil {
			return err
		}
	}
	author, err := bs.authors.Get(ctx, input.AuthorID)
	if err != nil {
		return err
	}

	book, err := newBook(input, author)
	if err != nil {
		return err
	}
	book.ID = current.ID
	if _, err = bs.storage.Save(ctx, book); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return bs.translateWriteError(err)
	}
	bs.logger.Info("service: book updated", zap.Int64("book.id", id), zap.Int64("author.id", book.AuthorID))
	return nil
}

// Delete removes the book. Deleting an unknown book is not an error.
func (bs *BookService) Delete(ctx context.Context, id int64) error {
	if err := bs.storage.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete book %d: %w", id, err)
	}
	bs.logger.Info("service: book deleted", zap.Int64("book.id", id))
	return nil
}

func (bs *BookService) find(ctx context.Context, id int64) (Book, error) {
	book, err := bs.storage.FindByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("service: failed to find book %d: %w", id, err)
	}
	return book, nil
}

func (bs *BookService) ensureISBNAvailable(ctx context.Context, isbn string) error {
	exists, err := bs.storage.ExistsByISBN(ctx, isbn)
	if err != nil {
		return fmt.Errorf("service: failed to check book isbn: %w", err)
	}
	if exists {
		return ErrIsbnDuplication
	}
	return nil
}

// translateWriteError turns storage failures of a save into domain errors.
// The author may be deleted between its lookup and the book write.
func (bs *BookService) translateWriteError(err error) error {
	switch {
	case errors.Is(err, ErrUniqueViolation):
		return ErrIsbnDuplication
	case errors.Is(err, ErrReferenceViolation):
		return ErrAuthorNotFound
	}
	bs.logger.Error("service: failed to save book", zap.Error(err))
	return fmt.Errorf("service: failed to save book: %w", err)
}

func newBook(input BookInput, author Author) (Book, error) {
	published, err := ParsePublicationDate(input.PublicationDate)
	if err != nil {
		return Book{}, &ValidationError{Fields: []FieldError{{Field: "publicationDate", Message: err.Error()}}}
	}
	return Book{
		Title:           input.Title,
		Description:     input.Description,
		ISBN:            input.ISBN,
		PublicationDate: published,
		AuthorID:        author.ID,
	}, nil
}

func views(books []Book) []BookView {
	out := make([]BookView, 0, len(books))
	for _, b := range books {
		out = append(out, b.View())
	}
	return out
}
