package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

// Buckets used by the bolt storage. Each unique index maps the unique
// value to the owner id and the links bucket holds authorID+bookID keys.
var (
	authorsBucket      = []byte("authors")
	authorEmailsBucket = []byte("authors.emails")
	authorBooksBucket  = []byte("authors.books")
	booksBucket        = []byte("books")
	bookISBNsBucket    = []byte("books.isbns")
)

type boltAuthorStorage struct {
	logger *zap.Logger
	client *bolt.DB
}

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
}

// GetBoltDBClient setup the database and its buckets then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{authorsBucket, authorEmailsBucket, authorBooksBucket, booksBucket, bookISBNsBucket} {
			if _, errB := tx.CreateBucketIfNotExists(name); errB != nil {
				return fmt.Errorf("failed to create %s bucket: %v", name, errB)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up buckets: %v", err)
	}
	return db, nil
}

// NewBoltAuthorStorage provides an instance of bolt-based author storage.
func NewBoltAuthorStorage(logger *zap.Logger, client *bolt.DB) AuthorStorage {
	return &boltAuthorStorage{logger: logger, client: client}
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, client *bolt.DB) BookStorage {
	return &boltBookStorage{logger: logger, client: client}
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func linkKey(authorID, bookID int64) []byte {
	return append(itob(authorID), itob(bookID)...)
}

// FindByID retrieves an author record based on its ID.
func (as *boltAuthorStorage) FindByID(_ context.Context, id int64) (Author, error) {
	var author Author
	err := as.client.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(authorsBucket).Get(itob(id))
		if data == nil {
			return ErrRecordNotFound
		}
		return json.Unmarshal(data, &author)
	})
	return author, err
}

// FindAll retrieves all authors ordered by id.
func (as *boltAuthorStorage) FindAll(_ context.Context) ([]Author, error) {
	authors := []Author{}
	err := as.client.View(func(tx *bolt.Tx) error {
		return tx.Bucket(authorsBucket).ForEach(func(_, v []byte) error {
			var author Author
			if err := json.Unmarshal(v, &author); err != nil {
				return err
			}
			authors = append(authors, author)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return authors, nil
}

// ExistsByEmail tells whether an author already owns the email.
func (as *boltAuthorStorage) ExistsByEmail(_ context.Context, email string) (bool, error) {
	var exists bool
	err := as.client.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(authorEmailsBucket).Get([]byte(email)) != nil
		return nil
	})
	return exists, err
}

// Save inserts the author when it has no id yet, otherwise replaces the
// stored record. The email index is checked and updated in the same transaction.
func (as *boltAuthorStorage) Save(_ context.Context, author Author) (Author, error) {
	err := as.client.Update(func(tx *bolt.Tx) error {
		authors := tx.Bucket(authorsBucket)
		emails := tx.Bucket(authorEmailsBucket)

		if owner := emails.Get([]byte(author.Email)); owner != nil && btoi(owner) != author.ID {
			return fmt.Errorf("%w: author email %q", ErrUniqueViolation, author.Email)
		}

		if author.ID == 0 {
			seq, err := authors.NextSequence()
			if err != nil {
				return err
			}
			author.ID = int64(seq)
		} else {
			data := authors.Get(itob(author.ID))
			if data == nil {
				return ErrRecordNotFound
			}
			var previous Author
			if err := json.Unmarshal(data, &previous); err != nil {
				return err
			}
			if previous.Email != author.Email {
				if err := emails.Delete([]byte(previous.Email)); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(author)
		if err != nil {
			return err
		}
		if err = emails.Put([]byte(author.Email), itob(author.ID)); err != nil {
			return err
		}
		return authors.Put(itob(author.ID), data)
	})
	if err != nil {
		return Author{}, err
	}
	return author, nil
}

// DeleteByID removes the author together with all its books. It is a no-op
// when the author does not exist.
func (as *boltAuthorStorage) DeleteByID(_ context.Context, id int64) error {
	return as.client.Update(func(tx *bolt.Tx) error {
		authors := tx.Bucket(authorsBucket)
		data := authors.Get(itob(id))
		if data == nil {
			return nil
		}
		var author Author
		if err := json.Unmarshal(data, &author); err != nil {
			return err
		}

		// collect first, a cursor must not see its bucket mutated while iterating.
		prefix := itob(id)
		var bookIDs []int64
		c := tx.Bucket(authorBooksBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			bookIDs = append(bookIDs, btoi(k[8:]))
		}
		for _, bookID := range bookIDs {
			if err := deleteBookTx(tx, bookID); err != nil {
				return err
			}
		}
		as.logger.Debug("bolt: cascading author deletion", zap.Int64("author.id", id), zap.Int("books", len(bookIDs)))

		if err := tx.Bucket(authorEmailsBucket).Delete([]byte(author.Email)); err != nil {
			return err
		}
		return authors.Delete(itob(id))
	})
}

// FindByID retrieves a book record based on its ID.
func (bs *boltBookStorage) FindByID(_ context.Context, id int64) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(booksBucket).Get(itob(id))
		if data == nil {
			return ErrRecordNotFound
		}
		return json.Unmarshal(data, &book)
	})
	return book, err
}

// FindAll retrieves all books ordered by id.
func (bs *boltBookStorage) FindAll(_ context.Context) ([]Book, error) {
	books := []Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		return tx.Bucket(booksBucket).ForEach(func(_, v []byte) error {
			var book Book
			if err := json.Unmarshal(v, &book); err != nil {
				return err
			}
			books = append(books, book)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// FindByAuthorID retrieves the books linked to the author.
func (bs *boltBookStorage) FindByAuthorID(_ context.Context, authorID int64) ([]Book, error) {
	books := []Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		all := tx.Bucket(booksBucket)
		prefix := itob(authorID)
		c := tx.Bucket(authorBooksBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			data := all.Get(k[8:])
			if data == nil {
				continue
			}
			var book Book
			if err := json.Unmarshal(data, &book); err != nil {
				return err
			}
			books = append(books, book)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// ExistsByISBN tells whether a book already owns the isbn.
func (bs *boltBookStorage) ExistsByISBN(_ context.Context, isbn string) (bool, error) {
	var exists bool
	err := bs.client.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bookISBNsBucket).Get([]byte(isbn)) != nil
		return nil
	})
	return exists, err
}

// Save inserts the book when it has no id yet, otherwise replaces the stored
// record. The author reference and the isbn index are enforced in the same transaction.
func (bs *boltBookStorage) Save(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		books := tx.Bucket(booksBucket)
		isbns := tx.Bucket(bookISBNsBucket)
		links := tx.Bucket(authorBooksBucket)

		if tx.Bucket(authorsBucket).Get(itob(book.AuthorID)) == nil {
			return fmt.Errorf("%w: author %d", ErrReferenceViolation, book.AuthorID)
		}
		if owner := isbns.Get([]byte(book.ISBN)); owner != nil && btoi(owner) != book.ID {
			return fmt.Errorf("%w: book isbn %q", ErrUniqueViolation, book.ISBN)
		}

		if book.ID == 0 {
			seq, err := books.NextSequence()
			if err != nil {
				return err
			}
			book.ID = int64(seq)
		} else {
			data := books.Get(itob(book.ID))
			if data == nil {
				return ErrRecordNotFound
			}
			var previous Book
			if err := json.Unmarshal(data, &previous); err != nil {
				return err
			}
			if previous.ISBN != book.ISBN {
				if err := isbns.Delete([]byte(previous.ISBN)); err != nil {
					return err
				}
			}
			if previous.AuthorID != book.AuthorID {
				if err := links.Delete(linkKey(previous.AuthorID, book.ID)); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(book)
		if err != nil {
			return err
		}
		if err = isbns.Put([]byte(book.ISBN), itob(book.ID)); err != nil {
			return err
		}
		if err = links.Put(linkKey(book.AuthorID, book.ID), []byte{}); err != nil {
			return err
		}
		return books.Put(itob(book.ID), data)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// DeleteByID removes a book record and its index entries. It is a
// no-op when the book does not exist.
func (bs *boltBookStorage) DeleteByID(_ context.Context, id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return deleteBookTx(tx, id)
	})
}

func deleteBookTx(tx *bolt.Tx, id int64) error {
	books := tx.Bucket(booksBucket)
	data := books.Get(itob(id))
	if data == nil {
		return nil
	}
	var book Book
	if err := json.Unmarshal(data, &book); err != nil {
		return err
	}
	if err := tx.Bucket(bookISBNsBucket).Delete([]byte(book.ISBN)); err != nil {
		return err
	}
	if err := tx.Bucket(authorBooksBucket).Delete(linkKey(book.AuthorID, id)); err != nil {
		return err
	}
	return books.Delete(itob(id))
}
