package main

import (
	"context"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

// MockAuthorStorage implements AuthorStorage with overridable behaviors.
// A nil function panics so tests notice unexpected calls.
type MockAuthorStorage struct {
	FindByIDFunc      func(ctx context.Context, id int64) (Author, error)
	FindAllFunc       func(ctx context.Context) ([]Author, error)
	ExistsByEmailFunc func(ctx context.Context, email string) (bool, error)
	SaveFunc          func(ctx context.Context, author Author) (Author, error)
	DeleteByIDFunc    func(ctx context.Context, id int64) error

	ExistsByEmailCalls int
	SaveCalls          int
}

// FindByID mocks the behavior of retrieving an author by the repository.
func (m *MockAuthorStorage) FindByID(ctx context.Context, id int64) (Author, error) {
	return m.FindByIDFunc(ctx, id)
}

// FindAll mocks the behavior of retrieving all authors by the repository.
func (m *MockAuthorStorage) FindAll(ctx context.Context) ([]Author, error) {
	return m.FindAllFunc(ctx)
}

// ExistsByEmail mocks the email uniqueness probe and counts its calls.
func (m *MockAuthorStorage) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.ExistsByEmailCalls++
	return m.ExistsByEmailFunc(ctx, email)
}

// Save mocks the behavior of persisting an author and counts its calls.
func (m *MockAuthorStorage) Save(ctx context.Context, author Author) (Author, error) {
	m.SaveCalls++
	return m.SaveFunc(ctx, author)
}

// DeleteByID mocks the behavior of deleting an author by the repository.
func (m *MockAuthorStorage) DeleteByID(ctx context.Context, id int64) error {
	return m.DeleteByIDFunc(ctx, id)
}

// MockBookStorage implements BookStorage with overridable behaviors.
type MockBookStorage struct {
	FindByIDFunc       func(ctx context.Context, id int64) (Book, error)
	FindAllFunc        func(ctx context.Context) ([]Book, error)
	FindByAuthorIDFunc func(ctx context.Context, authorID int64) ([]Book, error)
	ExistsByISBNFunc   func(ctx context.Context, isbn string) (bool, error)
	SaveFunc           func(ctx context.Context, book Book) (Book, error)
	DeleteByIDFunc     func(ctx context.Context, id int64) error

	ExistsByISBNCalls int
	SaveCalls         int
}

// FindByID mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	return m.FindByIDFunc(ctx, id)
}

// FindAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) FindAll(ctx context.Context) ([]Book, error) {
	return m.FindAllFunc(ctx)
}

// FindByAuthorID mocks the behavior of retrieving the books of an author.
func (m *MockBookStorage) FindByAuthorID(ctx context.Context, authorID int64) ([]Book, error) {
	return m.FindByAuthorIDFunc(ctx, authorID)
}

// ExistsByISBN mocks the isbn uniqueness probe and counts its calls.
func (m *MockBookStorage) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	m.ExistsByISBNCalls++
	return m.ExistsByISBNFunc(ctx, isbn)
}

// Save mocks the behavior of persisting a book and counts its calls.
func (m *MockBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	m.SaveCalls++
	return m.SaveFunc(ctx, book)
}

// DeleteByID mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) DeleteByID(ctx context.Context, id int64) error {
	return m.DeleteByIDFunc(ctx, id)
}

// MockAuthorService implements AuthorServiceProvider for handlers tests.
type MockAuthorService struct {
	CreateFunc func(ctx context.Context, input AuthorInput) (int64, error)
	GetFunc    func(ctx context.Context, id int64) (Author, error)
	ListFunc   func(ctx context.Context) ([]Author, error)
	UpdateFunc func(ctx context.Context, id int64, input AuthorInput) error
	DeleteFunc func(ctx context.Context, id int64) error
}

func (m *MockAuthorService) Create(ctx context.Context, input AuthorInput) (int64, error) {
	return m.CreateFunc(ctx, input)
}

func (m *MockAuthorService) Get(ctx context.Context, id int64) (Author, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockAuthorService) List(ctx context.Context) ([]Author, error) {
	return m.ListFunc(ctx)
}

func (m *MockAuthorService) Update(ctx context.Context, id int64, input AuthorInput) error {
	return m.UpdateFunc(ctx, id, input)
}

func (m *MockAuthorService) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status
// for any non empty id.
func (muid *MockUIDHandler) IsValid(id, _ string) bool {
	return muid.Valid && id != ""
}
