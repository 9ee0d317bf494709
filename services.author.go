package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// AuthorServiceProvider owns the author lifecycle and its invariants.
type AuthorServiceProvider interface {
	Create(ctx context.Context, input AuthorInput) (int64, error)
	Get(ctx context.Context, id int64) (Author, error)
	List(ctx context.Context) ([]Author, error)
	Update(ctx context.Context, id int64, input AuthorInput) error
	Delete(ctx context.Context, id int64) error
}

type AuthorService struct {
	logger  *zap.Logger
	storage AuthorStorage
}

func NewAuthorService(logger *zap.Logger, storage AuthorStorage) AuthorServiceProvider {
	return &AuthorService{
		logger:  logger,
		storage: storage,
	}
}

// Create registers a new author once its email is known to be free.
func (as *AuthorService) Create(ctx context.Context, input AuthorInput) (int64, error) {
	if err := ValidateInput(input); err != nil {
		return 0, err
	}
	if err := as.ensureEmailAvailable(ctx, input.Email); err != nil {
		return 0, err
	}

	author, err := as.storage.Save(ctx, Author{Name: input.Name, Email: input.Email})
	if err != nil {
		return 0, as.translateWriteError(err)
	}
	as.logger.Info("service: author created", zap.Int64("author.id", author.ID))
	return author.ID, nil
}

// Get returns the author with the given id.
func (as *AuthorService) Get(ctx context.Context, id int64) (Author, error) {
	author, err := as.storage.FindByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return Author{}, ErrAuthorNotFound
	}
	if err != nil {
		return Author{}, fmt.Errorf("service: failed to find author %d: %w", id, err)
	}
	return author, nil
}

// List returns every author.
func (as *AuthorService) List(ctx context.Context) ([]Author, error) {
	authors, err := as.storage.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list authors: %w", err)
	}
	if authors == nil {
		authors = []Author{}
	}
	return authors, nil
}

// Update overwrites the name and email of an existing author. The email
// uniqueness is only probed when the email actually changes.
func (as *AuthorService) Update(ctx context.Context, id int64, input AuthorInput) error {
	if err := ValidateInput(input); err != nil {
		return err
	}
	author, err := as.Get(ctx, id)
	if err != nil {
		return err
	}

	if author.Email != input.Email {
		if err = as.ensureEmailAvailable(ctx, input.Email); err != nil {
			return err
		}
	}

	author.Name = input.Name
	author.Email = input.Email
	if _, err = as.storage.Save(ctx, author); err != nil {
		return as.translateWriteError(err)
	}
	as.logger.Info("service: author updated", zap.Int64("author.id", id))
	return nil
}

// Delete removes the author and, through the storage, all of its books.
// Deleting an unknown author is not an error.
func (as *AuthorService) Delete(ctx context.Context, id int64) error {
	if err := as.storage.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete author %d: %w", id, err)
	}
	as.logger.Info("service: author deleted", zap.Int64("author.id", id))
	return nil
}

func (as *AuthorService) ensureEmailAvailable(ctx context.Context, email string) error {
	exists, err := as.storage.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("service: failed to check author email: %w", err)
	}
	if exists {
		return ErrEmailDuplication
	}
	return nil
}

// translateWriteError turns storage failures of a save into domain errors.
// A concurrent writer may take the email between the probe and the save.
func (as *AuthorService) translateWriteError(err error) error {
	switch {
	case errors.Is(err, ErrUniqueViolation):
		return ErrEmailDuplication
	case errors.Is(err, ErrRecordNotFound):
		return ErrAuthorNotFound
	}
	as.logger.Error("service: failed to save author", zap.Error(err))
	return fmt.Errorf("service: failed to save author: %w", err)
}
