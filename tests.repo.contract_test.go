package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStorageContract checks the behaviors every storage backend must share.
// The storages must be empty.
func runStorageContract(t *testing.T, authors AuthorStorage, books BookStorage) {
	ctx := context.Background()
	var ada, grace Author
	var book Book

	t.Run("Save Authors", func(t *testing.T) {
		var err error
		ada, err = authors.Save(ctx, Author{Name: "Ada", Email: "ada@x.io"})
		require.NoError(t, err)
		assert.NotZero(t, ada.ID)
		grace, err = authors.Save(ctx, Author{Name: "Grace", Email: "grace@x.io"})
		require.NoError(t, err)
		assert.Greater(t, grace.ID, ada.ID)
	})

	t.Run("Duplicated Email", func(t *testing.T) {
		_, err := authors.Save(ctx, Author{Name: "Other", Email: "ada@x.io"})
		assert.ErrorIs(t, err, ErrUniqueViolation)
		grace.Email = "ada@x.io"
		_, err = authors.Save(ctx, grace)
		assert.ErrorIs(t, err, ErrUniqueViolation)
		grace.Email = "grace@x.io"
	})

	t.Run("Get NonExistent Author", func(t *testing.T) {
		_, err := authors.FindByID(ctx, grace.ID+100)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("Save Book Of Unknown Author", func(t *testing.T) {
		_, err := books.Save(ctx, Book{Title: "Orphan", ISBN: "2000000010", AuthorID: grace.ID + 100})
		assert.ErrorIs(t, err, ErrReferenceViolation)
	})

	t.Run("Save Book", func(t *testing.T) {
		var err error
		book, err = books.Save(ctx, Book{Title: "T", ISBN: "1234567890", AuthorID: ada.ID})
		require.NoError(t, err)
		assert.NotZero(t, book.ID)

		found, err := books.FindByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, book, found)

		exists, err := books.ExistsByISBN(ctx, "1234567890")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Duplicated ISBN", func(t *testing.T) {
		_, err := books.Save(ctx, Book{Title: "T2", ISBN: "1234567890", AuthorID: grace.ID})
		assert.ErrorIs(t, err, ErrUniqueViolation)
	})

	t.Run("Update Book With Same ISBN", func(t *testing.T) {
		book.Title = "T updated"
		_, err := books.Save(ctx, book)
		require.NoError(t, err)
		found, err := books.FindByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, "T updated", found.Title)
	})

	t.Run("Books Of Author", func(t *testing.T) {
		list, err := books.FindByAuthorID(ctx, ada.ID)
		require.NoError(t, err)
		assert.Equal(t, []Book{book}, list)
		list, err = books.FindByAuthorID(ctx, grace.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Delete Author Cascades", func(t *testing.T) {
		require.NoError(t, authors.DeleteByID(ctx, ada.ID))
		_, err := books.FindByID(ctx, book.ID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
		exists, err := books.ExistsByISBN(ctx, "1234567890")
		require.NoError(t, err)
		assert.False(t, exists)
		all, err := authors.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Author{grace}, all)
	})

	t.Run("Delete NonExistent Records", func(t *testing.T) {
		assert.NoError(t, authors.DeleteByID(ctx, ada.ID))
		assert.NoError(t, books.DeleteByID(ctx, book.ID))
	})
}
