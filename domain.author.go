package main

import "context"

// Author represents an author entity. The books written by an author
// are not part of the record, they are fetched by author id on demand.
type Author struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthorInput holds the fields accepted on author creation and full update.
type AuthorInput struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
}

// AuthorStorage defines possible operations on author entity.
type AuthorStorage interface {
	FindByID(ctx context.Context, id int64) (Author, error)
	FindAll(ctx context.Context) ([]Author, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, author Author) (Author, error)
	DeleteByID(ctx context.Context, id int64) error
}
