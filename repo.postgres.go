package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres error codes mapped to storage failures.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// catalogSchema creates the tables when missing. Books follow their author
// deletion through the foreign key.
const catalogSchema = `
CREATE TABLE IF NOT EXISTS authors (
	id    BIGSERIAL PRIMARY KEY,
	name  TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS books (
	id               BIGSERIAL PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	isbn             TEXT NOT NULL UNIQUE,
	publication_date DATE,
	author_id        BIGINT NOT NULL REFERENCES authors(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS books_author_id_idx ON books (author_id);
`

type postgresAuthorStorage struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

type postgresBookStorage struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

// GetPostgresPool connects to the database, checks the connection and
// makes sure the catalog tables exist.
func GetPostgresPool(ctx context.Context, config *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %v", err)
	}
	if config.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = config.Postgres.MaxConns
	}
	timeout := config.Postgres.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	if _, err = pool.Exec(cctx, catalogSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create catalog tables: %v", err)
	}
	return pool, nil
}

// NewPostgresAuthorStorage provides an instance of postgres-based author storage.
func NewPostgresAuthorStorage(logger *zap.Logger, pool *pgxpool.Pool) AuthorStorage {
	return &postgresAuthorStorage{logger: logger, pool: pool}
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, pool *pgxpool.Pool) BookStorage {
	return &postgresBookStorage{logger: logger, pool: pool}
}

// translatePgError converts constraint violations into storage failures.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrReferenceViolation, pgErr.ConstraintName)
		}
	}
	return err
}

// FindByID retrieves an author record based on its ID.
func (ps *postgresAuthorStorage) FindByID(ctx context.Context, id int64) (Author, error) {
	var a Author
	err := ps.pool.QueryRow(ctx, `SELECT id, name, email FROM authors WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Author{}, ErrRecordNotFound
	}
	return a, err
}

// FindAll retrieves all authors ordered by id.
func (ps *postgresAuthorStorage) FindAll(ctx context.Context) ([]Author, error) {
	rows, err := ps.pool.Query(ctx, `SELECT id, name, email FROM authors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Author, error) {
		var a Author
		err := row.Scan(&a.ID, &a.Name, &a.Email)
		return a, err
	})
}

// ExistsByEmail tells whether an author already owns the email.
func (ps *postgresAuthorStorage) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := ps.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM authors WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// Save inserts the author when it has no id yet, otherwise replaces the stored record.
func (ps *postgresAuthorStorage) Save(ctx context.Context, author Author) (Author, error) {
	if author.ID == 0 {
		err := ps.pool.QueryRow(ctx,
			`INSERT INTO authors (name, email) VALUES ($1, $2) RETURNING id`,
			author.Name, author.Email,
		).Scan(&author.ID)
		if err != nil {
			return Author{}, translatePgError(err)
		}
		return author, nil
	}

	tag, err := ps.pool.Exec(ctx,
		`UPDATE authors SET name = $2, email = $3 WHERE id = $1`,
		author.ID, author.Name, author.Email,
	)
	if err != nil {
		return Author{}, translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return Author{}, ErrRecordNotFound
	}
	return author, nil
}

// DeleteByID removes the author, the foreign key removes its books.
func (ps *postgresAuthorStorage) DeleteByID(ctx context.Context, id int64) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	ps.logger.Debug("postgres: author deletion", zap.Int64("author.id", id), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

const bookColumns = `id, title, description, isbn, publication_date, author_id`

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.ISBN, &b.PublicationDate, &b.AuthorID)
	return b, err
}

func collectBooks(rows pgx.Rows) ([]Book, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Book, error) {
		return scanBook(row)
	})
}

// FindByID retrieves a book record based on its ID.
func (ps *postgresBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	book, err := scanBook(ps.pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrRecordNotFound
	}
	return book, err
}

// FindAll retrieves all books ordered by id.
func (ps *postgresBookStorage) FindAll(ctx context.Context) ([]Book, error) {
	rows, err := ps.pool.Query(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// FindByAuthorID retrieves the books written by the author.
func (ps *postgresBookStorage) FindByAuthorID(ctx context.Context, authorID int64) ([]Book, error) {
	rows, err := ps.pool.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE author_id = $1 ORDER BY id`, authorID)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// ExistsByISBN tells whether a book already owns the isbn.
func (ps *postgresBookStorage) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var exists bool
	err := ps.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`, isbn).Scan(&exists)
	return exists, err
}

// Save inserts the book when it has no id yet, otherwise replaces the stored record.
// The constraints report a taken isbn or a missing author at write time.
func (ps *postgresBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	if book.ID == 0 {
		err := ps.pool.QueryRow(ctx,
			`INSERT INTO books (title, description, isbn, publication_date, author_id)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			book.Title, book.Description, book.ISBN, book.PublicationDate, book.AuthorID,
		).Scan(&book.ID)
		if err != nil {
			return Book{}, translatePgError(err)
		}
		return book, nil
	}

	tag, err := ps.pool.Exec(ctx,
		`UPDATE books SET title = $2, description = $3, isbn = $4, publication_date = $5, author_id = $6
		 WHERE id = $1`,
		book.ID, book.Title, book.Description, book.ISBN, book.PublicationDate, book.AuthorID,
	)
	if err != nil {
		return Book{}, translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return Book{}, ErrRecordNotFound
	}
	return book, nil
}

// DeleteByID removes a book record. It is a no-op when the book does not exist.
func (ps *postgresBookStorage) DeleteByID(ctx context.Context, id int64) error {
	_, err := ps.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	return err
}
