package main

import (
	"context"
	"time"
)

// DateLayout is the canonical wire format of a book publication date.
const DateLayout = "2006-01-02"

// Book represents a book entity as persisted.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ISBN            string     `json:"isbn"`
	PublicationDate *time.Time `json:"publicationDate,omitempty"`
	AuthorID        int64      `json:"authorId"`
}

// BookView is the read model served to clients.
type BookView struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ISBN            string `json:"isbn"`
	PublicationDate string `json:"publicationDate,omitempty"`
	AuthorID        int64  `json:"authorId"`
}

// BookInput holds the fields accepted on book creation and full update.
type BookInput struct {
	Title           string `json:"title" validate:"notblank"`
	Description     string `json:"description"`
	ISBN            string `json:"isbn" validate:"required,isbn10"`
	PublicationDate string `json:"publicationDate" validate:"omitempty,datetime=2006-01-02"`
	AuthorID        int64  `json:"authorId" validate:"required,gt=0"`
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	FindByID(ctx context.Context, id int64) (Book, error)
	FindAll(ctx context.Context) ([]Book, error)
	FindByAuthorID(ctx context.Context, authorID int64) ([]Book, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	Save(ctx context.Context, book Book) (Book, error)
	DeleteByID(ctx context.Context, id int64) error
}

// View renders the book into its client facing representation.
func (b Book) View() BookView {
	v := BookView{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		ISBN:        b.ISBN,
		AuthorID:    b.AuthorID,
	}
	if b.PublicationDate != nil {
		v.PublicationDate = b.PublicationDate.Format(DateLayout)
	}
	return v
}

// ParsePublicationDate converts an already validated date string. An
// empty value means the publication date is unknown.
func ParsePublicationDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
