package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/zyenak/library-management/internal/domain"
	"github.com/zyenak/library-management/internal/domain/models"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the Postgres-backed store. All mutations that touch the membership
// table and a book's quantity run inside a single transaction.
type DB struct {
	pool *pgxpool.Pool
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) CheckDBConnect(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsIntegrityConstraintViolation(pgErr.Code)
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.ForeignKeyViolation
	}
	return false
}

// --- users ---

func (db *DB) InsertUser(ctx context.Context, user models.User) (string, error) {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (id, username, password, role) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.Password, user.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrDuplicate
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return user.ID, nil
}

func (db *DB) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	row := db.pool.QueryRow(ctx,
		`SELECT id, username, password, role FROM users WHERE id = $1`, id)
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, domain.ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	books, err := db.borrowedBooks(ctx, db.pool, user.ID)
	if err != nil {
		return models.User{}, err
	}
	user.BorrowedBooks = books
	return user, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	row := db.pool.QueryRow(ctx,
		`SELECT id, username, password, role FROM users WHERE username = $1`, username)
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, domain.ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (db *DB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, username, password, role FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("get all users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err = rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	for i := range users {
		books, err := db.borrowedBooks(ctx, db.pool, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].BorrowedBooks = books
	}
	return users, nil
}

func (db *DB) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	row := db.pool.QueryRow(ctx,
		`DELETE FROM users WHERE id = $1 RETURNING id, username, password, role`, id)
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return &user, nil
}

func (db *DB) UpdatePassword(ctx context.Context, id string, hash string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET password = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --- books ---

func (db *DB) InsertBook(ctx context.Context, book models.Book) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO books (isbn, name, category, price, quantity) VALUES ($1, $2, $3, $4, $5)`,
		book.ISBN, book.Name, book.Category, book.Price, book.Quantity)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (db *DB) GetBook(ctx context.Context, isbn string) (models.Book, error) {
	var book models.Book
	row := db.pool.QueryRow(ctx,
		`SELECT isbn, name, category, price, quantity FROM books WHERE isbn = $1`, isbn)
	if err := row.Scan(&book.ISBN, &book.Name, &book.Category, &book.Price, &book.Quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, domain.ErrNotFound
		}
		return models.Book{}, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

func (db *DB) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT isbn, name, category, price, quantity FROM books ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("get all books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var book models.Book
		if err = rows.Scan(&book.ISBN, &book.Name, &book.Category, &book.Price, &book.Quantity); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

func (db *DB) UpdateBook(ctx context.Context, isbn string, input models.UpdateBookInput) (models.Book, error) {
	var book models.Book
	row := db.pool.QueryRow(ctx,
		`UPDATE books
		    SET name = COALESCE($2, name),
		        category = COALESCE($3, category),
		        price = COALESCE($4, price),
		        quantity = COALESCE($5, quantity)
		  WHERE isbn = $1
		  RETURNING isbn, name, category, price, quantity`,
		isbn, input.Name, input.Category, input.Price, input.Quantity)
	if err := row.Scan(&book.ISBN, &book.Name, &book.Category, &book.Price, &book.Quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, domain.ErrNotFound
		}
		return models.Book{}, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

func (db *DB) DeleteBook(ctx context.Context, isbn string) (models.Book, error) {
	var book models.Book
	row := db.pool.QueryRow(ctx,
		`DELETE FROM books WHERE isbn = $1 RETURNING isbn, name, category, price, quantity`, isbn)
	if err := row.Scan(&book.ISBN, &book.Name, &book.Category, &book.Price, &book.Quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, domain.ErrNotFound
		}
		return models.Book{}, fmt.Errorf("delete book: %w", err)
	}
	return book, nil
}

// --- borrowing ---

// BorrowBook creates the membership edge and decrements the quantity as one
// transaction. The edge insert goes first so its constraints distinguish the
// failure modes: a primary-key hit means this user already holds the book, a
// foreign-key hit means the book does not exist.
func (db *DB) BorrowBook(ctx context.Context, userID, isbn string) (models.User, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("begin borrow tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err = userExists(ctx, tx, userID); err != nil {
		return models.User{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO borrowed_books (user_id, isbn) VALUES ($1, $2)`, userID, isbn)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.User{}, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return models.User{}, domain.ErrAlreadyBorrowed
		}
		return models.User{}, fmt.Errorf("insert membership: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE books SET quantity = quantity - 1 WHERE isbn = $1 AND quantity > 0`, isbn)
	if err != nil {
		return models.User{}, fmt.Errorf("decrement quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, domain.ErrNoCopies
	}

	user, err := db.userInTx(ctx, tx, userID)
	if err != nil {
		return models.User{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.User{}, fmt.Errorf("commit borrow tx: %w", err)
	}
	return user, nil
}

// ReturnBook removes the membership edge and increments the quantity as one
// transaction. Returning a book that was never borrowed is rejected.
func (db *DB) ReturnBook(ctx context.Context, userID, isbn string) (models.User, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("begin return tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err = userExists(ctx, tx, userID); err != nil {
		return models.User{}, err
	}
	var exists bool
	if err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`, isbn).Scan(&exists); err != nil {
		return models.User{}, fmt.Errorf("check book: %w", err)
	}
	if !exists {
		return models.User{}, domain.ErrNotFound
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM borrowed_books WHERE user_id = $1 AND isbn = $2`, userID, isbn)
	if err != nil {
		return models.User{}, fmt.Errorf("delete membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, domain.ErrNotBorrowed
	}

	if _, err = tx.Exec(ctx,
		`UPDATE books SET quantity = quantity + 1 WHERE isbn = $1`, isbn); err != nil {
		return models.User{}, fmt.Errorf("increment quantity: %w", err)
	}

	user, err := db.userInTx(ctx, tx, userID)
	if err != nil {
		return models.User{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.User{}, fmt.Errorf("commit return tx: %w", err)
	}
	return user, nil
}

// querier covers both the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func userExists(ctx context.Context, q querier, id string) error {
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) userInTx(ctx context.Context, tx pgx.Tx, id string) (models.User, error) {
	var user models.User
	row := tx.QueryRow(ctx,
		`SELECT id, username, password, role FROM users WHERE id = $1`, id)
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, domain.ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	books, err := db.borrowedBooks(ctx, tx, id)
	if err != nil {
		return models.User{}, err
	}
	user.BorrowedBooks = books
	return user, nil
}

func (db *DB) borrowedBooks(ctx context.Context, q querier, userID string) ([]models.Book, error) {
	rows, err := q.Query(ctx,
		`SELECT b.isbn, b.name, b.category, b.price, b.quantity
		   FROM books b
		   JOIN borrowed_books bb ON bb.isbn = b.isbn
		  WHERE bb.user_id = $1
		  ORDER BY b.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("get borrowed books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var book models.Book
		if err = rows.Scan(&book.ISBN, &book.Name, &book.Category, &book.Price, &book.Quantity); err != nil {
			return nil, fmt.Errorf("scan borrowed book: %w", err)
		}
		books = append(books, book)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate borrowed books: %w", err)
	}
	return books, nil
}
