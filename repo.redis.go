package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis keys of the catalog. Each record and each unique value owns its own
// key so that writes on unrelated records never watch the same keys. The ids
// of each entity are kept in a sorted set scored by id.
const (
	ZAuthors       string = "authors"
	KAuthorsSeq    string = "authors:seq"
	ZBooks         string = "books"
	KBooksSeq      string = "books:seq"
	authorFmt      string = "author:%d"
	authorEmailFmt string = "authors:email:%s"
	authorBooksFmt string = "authors:%d:books"
	bookFmt        string = "book:%d"
	bookISBNFmt    string = "books:isbn:%s"
)

// recordGetter is satisfied by both the client and a watching transaction.
type recordGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisAuthorStorage struct {
	logger *zap.Logger
	client *redis.Client
}

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisAuthorStorage provides an instance of redis-based author storage.
func NewRedisAuthorStorage(logger *zap.Logger, client *redis.Client) AuthorStorage {
	return &redisAuthorStorage{logger: logger, client: client}
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{logger: logger, client: client}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(ctx context.Context, config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(ctx).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

func authorKey(id int64) string { return fmt.Sprintf(authorFmt, id) }

func authorEmailKey(email string) string { return fmt.Sprintf(authorEmailFmt, email) }

func authorBooksKey(authorID int64) string { return fmt.Sprintf(authorBooksFmt, authorID) }

func bookKey(id int64) string { return fmt.Sprintf(bookFmt, id) }

func bookISBNKey(isbn string) string { return fmt.Sprintf(bookISBNFmt, isbn) }

// runTx executes fn as an optimistic transaction watching keys and replays
// it as long as another client modified one of them before the commit and
// the context is still alive.
func runTx(ctx context.Context, client *redis.Client, fn func(*redis.Tx) error, keys ...string) error {
	for {
		err := client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("redis: transaction aborted: %w", ctx.Err())
		}
	}
}

// ownerOf returns the id stored under an unique index key, or an empty
// string when the value is free.
func ownerOf(ctx context.Context, tx *redis.Tx, key string) (string, error) {
	owner, err := tx.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}

func getRecord(ctx context.Context, c recordGetter, key string, v interface{}) error {
	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// listRecords loads the records whose ids are members of the sorted set.
func listRecords(ctx context.Context, c *redis.Client, ids []string, keyOf func(int64) string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, err
		}
		keys = append(keys, keyOf(n))
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	raws := make([]string, 0, len(values))
	for _, v := range values {
		// a record removed between the two reads is skipped.
		if s, ok := v.(string); ok {
			raws = append(raws, s)
		}
	}
	return raws, nil
}

// FindByID retrieves an author record based on its ID.
func (rs *redisAuthorStorage) FindByID(ctx context.Context, id int64) (Author, error) {
	var author Author
	err := getRecord(ctx, rs.client, authorKey(id), &author)
	return author, err
}

// FindAll retrieves all authors ordered by id.
func (rs *redisAuthorStorage) FindAll(ctx context.Context) ([]Author, error) {
	ids, err := rs.client.ZRange(ctx, ZAuthors, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	values, err := listRecords(ctx, rs.client, ids, authorKey)
	if err != nil {
		return nil, err
	}
	authors := make([]Author, 0, len(values))
	for _, v := range values {
		var author Author
		if err = json.Unmarshal([]byte(v), &author); err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}
	return authors, nil
}

// ExistsByEmail tells whether an author already owns the email.
func (rs *redisAuthorStorage) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := rs.client.Exists(ctx, authorEmailKey(email)).Result()
	return n == 1, err
}

// Save inserts the author when it has no id yet, otherwise replaces the
// stored record. Only the record key and its email key are watched.
func (rs *redisAuthorStorage) Save(ctx context.Context, author Author) (Author, error) {
	isNew := author.ID == 0
	if isNew {
		id, err := rs.client.Incr(ctx, KAuthorsSeq).Result()
		if err != nil {
			return Author{}, err
		}
		author.ID = id
	}
	err := runTx(ctx, rs.client, rs.saveTx(ctx, author, isNew), authorKey(author.ID), authorEmailKey(author.Email))
	if err != nil {
		return Author{}, err
	}
	return author, nil
}

func (rs *redisAuthorStorage) saveTx(ctx context.Context, author Author, isNew bool) func(*redis.Tx) error {
	id := strconv.FormatInt(author.ID, 10)
	return func(tx *redis.Tx) error {
		owner, err := ownerOf(ctx, tx, authorEmailKey(author.Email))
		if err != nil {
			return err
		}
		if owner != "" && owner != id {
			return fmt.Errorf("%w: author email %q", ErrUniqueViolation, author.Email)
		}

		var previous Author
		if !isNew {
			if err = getRecord(ctx, tx, authorKey(author.ID), &previous); err != nil {
				return err
			}
		}

		data, err := json.Marshal(author)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if !isNew && previous.Email != author.Email {
				pipe.Del(ctx, authorEmailKey(previous.Email))
			}
			pipe.Set(ctx, authorEmailKey(author.Email), id, 0)
			pipe.Set(ctx, authorKey(author.ID), data, 0)
			pipe.ZAdd(ctx, ZAuthors, redis.Z{Score: float64(author.ID), Member: id})
			return nil
		})
		return err
	}
}

// DeleteByID removes the author together with all its books. It is a no-op
// when the author does not exist. The books found in the author set are
// watched as well before being removed.
func (rs *redisAuthorStorage) DeleteByID(ctx context.Context, id int64) error {
	linksKey := authorBooksKey(id)
	fn := func(tx *redis.Tx) error {
		var author Author
		err := getRecord(ctx, tx, authorKey(id), &author)
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		bookIDs, err := tx.SMembers(ctx, linksKey).Result()
		if err != nil {
			return err
		}
		books := make([]Book, 0, len(bookIDs))
		for _, member := range bookIDs {
			bookID, err := strconv.ParseInt(member, 10, 64)
			if err != nil {
				return err
			}
			if err = tx.Watch(ctx, bookKey(bookID)).Err(); err != nil {
				return err
			}
			var book Book
			err = getRecord(ctx, tx, bookKey(bookID), &book)
			if errors.Is(err, ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			books = append(books, book)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, book := range books {
				pipe.Del(ctx, bookKey(book.ID), bookISBNKey(book.ISBN))
				pipe.ZRem(ctx, ZBooks, strconv.FormatInt(book.ID, 10))
			}
			pipe.Del(ctx, linksKey, authorEmailKey(author.Email), authorKey(id))
			pipe.ZRem(ctx, ZAuthors, strconv.FormatInt(id, 10))
			return nil
		})
		if err == nil {
			rs.logger.Debug("redis: cascading author deletion", zap.Int64("author.id", id), zap.Int("books", len(books)))
		}
		return err
	}
	return runTx(ctx, rs.client, fn, authorKey(id), linksKey)
}

// FindByID retrieves a book record based on its ID.
func (rs *redisBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	var book Book
	err := getRecord(ctx, rs.client, bookKey(id), &book)
	return book, err
}

// FindAll retrieves all books ordered by id.
func (rs *redisBookStorage) FindAll(ctx context.Context) ([]Book, error) {
	ids, err := rs.client.ZRange(ctx, ZBooks, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	values, err := listRecords(ctx, rs.client, ids, bookKey)
	if err != nil {
		return nil, err
	}
	return decodeBooks(values)
}

// FindByAuthorID retrieves the books linked to the author ordered by id.
func (rs *redisBookStorage) FindByAuthorID(ctx context.Context, authorID int64) ([]Book, error) {
	ids, err := rs.client.SMembers(ctx, authorBooksKey(authorID)).Result()
	if err != nil {
		return nil, err
	}
	values, err := listRecords(ctx, rs.client, ids, bookKey)
	if err != nil {
		return nil, err
	}
	books, err := decodeBooks(values)
	if err != nil {
		return nil, err
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func decodeBooks(values []string) ([]Book, error) {
	books := make([]Book, 0, len(values))
	for _, v := range values {
		var book Book
		if err := json.Unmarshal([]byte(v), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// ExistsByISBN tells whether a book already owns the isbn.
func (rs *redisBookStorage) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	n, err := rs.client.Exists(ctx, bookISBNKey(isbn)).Result()
	return n == 1, err
}

// Save inserts the book when it has no id yet, otherwise replaces the stored
// record. Watching the author key makes a concurrent deletion of that author
// abort the write.
func (rs *redisBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	isNew := book.ID == 0
	if isNew {
		id, err := rs.client.Incr(ctx, KBooksSeq).Result()
		if err != nil {
			return Book{}, err
		}
		book.ID = id
	}
	id := strconv.FormatInt(book.ID, 10)

	fn := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, authorKey(book.AuthorID)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%w: author %d", ErrReferenceViolation, book.AuthorID)
		}

		owner, err := ownerOf(ctx, tx, bookISBNKey(book.ISBN))
		if err != nil {
			return err
		}
		if owner != "" && owner != id {
			return fmt.Errorf("%w: book isbn %q", ErrUniqueViolation, book.ISBN)
		}

		var previous Book
		if !isNew {
			if err = getRecord(ctx, tx, bookKey(book.ID), &previous); err != nil {
				return err
			}
		}

		data, err := json.Marshal(book)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if !isNew && previous.ISBN != book.ISBN {
				pipe.Del(ctx, bookISBNKey(previous.ISBN))
			}
			if !isNew && previous.AuthorID != book.AuthorID {
				pipe.SRem(ctx, authorBooksKey(previous.AuthorID), id)
			}
			pipe.Set(ctx, bookISBNKey(book.ISBN), id, 0)
			pipe.SAdd(ctx, authorBooksKey(book.AuthorID), id)
			pipe.Set(ctx, bookKey(book.ID), data, 0)
			pipe.ZAdd(ctx, ZBooks, redis.Z{Score: float64(book.ID), Member: id})
			return nil
		})
		return err
	}
	if err := runTx(ctx, rs.client, fn, authorKey(book.AuthorID), bookISBNKey(book.ISBN), bookKey(book.ID)); err != nil {
		return Book{}, err
	}
	return book, nil
}

// DeleteByID removes a book record and its index entries. It is a
// no-op when the book does not exist.
func (rs *redisBookStorage) DeleteByID(ctx context.Context, id int64) error {
	fn := func(tx *redis.Tx) error {
		var book Book
		err := getRecord(ctx, tx, bookKey(id), &book)
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, bookISBNKey(book.ISBN), bookKey(id))
			pipe.SRem(ctx, authorBooksKey(book.AuthorID), strconv.FormatInt(id, 10))
			pipe.ZRem(ctx, ZBooks, strconv.FormatInt(id, 10))
			return nil
		})
		return err
	}
	return runTx(ctx, rs.client, fn, bookKey(id))
}
