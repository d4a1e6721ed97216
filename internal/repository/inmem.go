package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/zyenak/library-management/internal/domain"
	"github.com/zyenak/library-management/internal/domain/models"
)

type edge struct {
	userID string
	isbn   string
}

// InMem is a map-backed store with the same semantics as the Postgres one,
// used by the demo mode and the tests. A single mutex stands in for the
// transactional boundary around borrow and return.
type InMem struct {
	mu    sync.Mutex
	users map[string]models.User
	books map[string]models.Book
	edges map[edge]struct{}
}

func NewInMem() *InMem {
	return &InMem{
		users: make(map[string]models.User),
		books: make(map[string]models.Book),
		edges: make(map[edge]struct{}),
	}
}

func (repo *InMem) CheckDBConnect(_ context.Context) error { return nil }

func (repo *InMem) InsertUser(_ context.Context, user models.User) (string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.users {
		if existing.Username == user.Username {
			return "", domain.ErrDuplicate
		}
	}
	user.BorrowedBooks = nil
	repo.users[user.ID] = user
	return user.ID, nil
}

func (repo *InMem) GetUser(_ context.Context, id string) (models.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return models.User{}, domain.ErrNotFound
	}
	user.BorrowedBooks = repo.borrowedLocked(id)
	return user, nil
}

func (repo *InMem) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, domain.ErrNotFound
}

func (repo *InMem) GetAllUsers(_ context.Context) ([]models.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	users := []models.User{}
	for _, user := range repo.users {
		user.BorrowedBooks = repo.borrowedLocked(user.ID)
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (repo *InMem) DeleteUser(_ context.Context, id string) (*models.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return nil, nil
	}
	delete(repo.users, id)
	for e := range repo.edges {
		if e.userID == id {
			delete(repo.edges, e)
		}
	}
	return &user, nil
}

func (repo *InMem) UpdatePassword(_ context.Context, id string, hash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.Password = hash
	repo.users[id] = user
	return nil
}

func (repo *InMem) InsertBook(_ context.Context, book models.Book) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.books[book.ISBN]; ok {
		return domain.ErrDuplicate
	}
	repo.books[book.ISBN] = book
	return nil
}

func (repo *InMem) GetBook(_ context.Context, isbn string) (models.Book, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	book, ok := repo.books[isbn]
	if !ok {
		return models.Book{}, domain.ErrNotFound
	}
	return book, nil
}

func (repo *InMem) GetAllBooks(_ context.Context) ([]models.Book, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	books := []models.Book{}
	for _, book := range repo.books {
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Name < books[j].Name })
	return books, nil
}

func (repo *InMem) UpdateBook(_ context.Context, isbn string, input models.UpdateBookInput) (models.Book, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	book, ok := repo.books[isbn]
	if !ok {
		return models.Book{}, domain.ErrNotFound
	}
	if input.Name != nil {
		book.Name = *input.Name
	}
	if input.Category != nil {
		book.Category = *input.Category
	}
	if input.Price != nil {
		book.Price = *input.Price
	}
	if input.Quantity != nil {
		book.Quantity = *input.Quantity
	}
	repo.books[isbn] = book
	return book, nil
}

func (repo *InMem) DeleteBook(_ context.Context, isbn string) (models.Book, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	book, ok := repo.books[isbn]
	if !ok {
		return models.Book{}, domain.ErrNotFound
	}
	delete(repo.books, isbn)
	for e := range repo.edges {
		if e.isbn == isbn {
			delete(repo.edges, e)
		}
	}
	return book, nil
}

func (repo *InMem) BorrowBook(_ context.Context, userID, isbn string) (models.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[userID]
	if !ok {
		return models.User{}, domain.ErrNotFound
	}
	book, ok := repo.books[isbn]
	if !ok {
		return models.User{}, domain.ErrNotFound
	}
	if _, ok = repo.edges[edge{userID, isbn}]; ok {
		return models.User{}, domain.ErrAlreadyBorrowed
	}
	if book.Quantity <= 0 {
		return models.User{}, domain.ErrNoCopies
	}
	repo.edges[edge{userID, isbn}] = struct{}{}
	book.Quantity--
	repo.books[isbn] = book
	user.BorrowedBooks = repo.borrowedLocked(userID)
	return user, nil
}

func (repo *InMem) ReturnBook(_ context.Context, userID, isbn string) (models.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[userID]
	if !ok {
		return models.User{}, domain.ErrNotFound
	}
	book, ok := repo.books[isbn]
	if !ok {
		return models.User{}, domain.ErrNotFound
	}
	if _, ok = repo.edges[edge{userID, isbn}]; !ok {
		return models.User{}, domain.ErrNotBorrowed
	}
	delete(repo.edges, edge{userID, isbn})
	book.Quantity++
	repo.books[isbn] = book
	user.BorrowedBooks = repo.borrowedLocked(userID)
	return user, nil
}

func (repo *InMem) borrowedLocked(userID string) []models.Book {
	books := []models.Book{}
	for e := range repo.edges {
		if e.userID != userID {
			continue
		}
		if book, ok := repo.books[e.isbn]; ok {
			books = append(books, book)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Name < books[j].Name })
	return books
}
