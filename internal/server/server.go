package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/zyenak/library-management/internal/domain"
	"github.com/zyenak/library-management/internal/domain/models"
	"github.com/zyenak/library-management/internal/eventbus"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

//go:generate mockgen -source=server.go -destination=../../mocks/storage_mock.go -package=mocks

type Storage interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	InsertUser(ctx context.Context, user models.User) (string, error)
	DeleteUser(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, hash string) error
	GetAllBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, isbn string) (models.Book, error)
	InsertBook(ctx context.Context, book models.Book) error
	UpdateBook(ctx context.Context, isbn string, input models.UpdateBookInput) (models.Book, error)
	DeleteBook(ctx context.Context, isbn string) (models.Book, error)
	BorrowBook(ctx context.Context, userID, isbn string) (models.User, error)
	ReturnBook(ctx context.Context, userID, isbn string) (models.User, error)
}

type Server struct {
	DB     Storage
	Bus    *eventbus.Bus
	secret []byte
	log    *zerolog.Logger
}

func New(dataBase Storage, bus *eventbus.Bus, secret string, zlog *zerolog.Logger) *Server {
	registerRoleValidator()
	return &Server{
		DB:     dataBase,
		Bus:    bus,
		secret: []byte(secret),
		log:    zlog,
	}
}

func registerRoleValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).Valid()
		})
	}
}

// Router builds the full route table. The caller-resolution middleware runs
// on everything; per-handler checks decide what each operation requires.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.resolveCaller())

	api := router.Group("/api", rateLimit(), countRequests())
	{
		api.GET("/books", s.GetAllBooks)
		api.GET("/books/:isbn", s.GetBook)
		api.POST("/books", s.CreateBook)
		api.PATCH("/books/:isbn", s.UpdateBook)
		api.DELETE("/books/:isbn", s.DeleteBook)
		api.POST("/books/:isbn/borrow", s.BorrowBook)
		api.POST("/books/:isbn/return", s.ReturnBook)

		api.POST("/users", s.RegisterHandler)
		api.GET("/users", s.GetUsersHandler)
		api.GET("/users/:id", s.GetUserHandler)
		api.DELETE("/users/:id", s.DeleteUserHandler)
		api.POST("/users/:id/password", s.ChangePasswordHandler)
		api.POST("/login", s.LoginHandler)

		api.GET("/subscribe/book-added", s.SubscribeBookAdded)
	}
	router.GET("/metrics", metricsHandler())
	return router
}

func (s *Server) writeError(ginCtx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrNoCopies),
		errors.Is(err, domain.ErrAlreadyBorrowed),
		errors.Is(err, domain.ErrNotBorrowed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotAuthorized):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", ginCtx.FullPath()).Msg("request failed")
		countError(ginCtx.FullPath())
	}
	ginCtx.JSON(status, gin.H{"error": err.Error()})
}
