package server

import (
	"net/http"

	"github.com/zyenak/library-management/internal/domain/models"
	"github.com/zyenak/library-management/internal/eventbus"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetAllBooks(ginCtx *gin.Context) {
	books, err := s.DB.GetAllBooks(ginCtx.Request.Context())
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, books)
}

func (s *Server) GetBook(ginCtx *gin.Context) {
	book, err := s.DB.GetBook(ginCtx.Request.Context(), ginCtx.Param("isbn"))
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, book)
}

func (s *Server) CreateBook(ginCtx *gin.Context) {
	if _, ok := s.requireAdmin(ginCtx); !ok {
		return
	}
	var input models.CreateBookInput
	if err := ginCtx.ShouldBindBodyWithJSON(&input); err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book := models.Book{
		ISBN:     input.ISBN,
		Name:     input.Name,
		Category: input.Category,
		Price:    input.Price,
		Quantity: input.Quantity,
	}
	if err := s.DB.InsertBook(ginCtx.Request.Context(), book); err != nil {
		s.writeError(ginCtx, err)
		return
	}
	s.Bus.Publish(eventbus.Event{Name: eventbus.EventBookAdded, Book: book})
	ginCtx.JSON(http.StatusCreated, book)
}

func (s *Server) UpdateBook(ginCtx *gin.Context) {
	if _, ok := s.requireAdmin(ginCtx); !ok {
		return
	}
	var input models.UpdateBookInput
	if err := ginCtx.ShouldBindBodyWithJSON(&input); err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, err := s.DB.UpdateBook(ginCtx.Request.Context(), ginCtx.Param("isbn"), input)
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, book)
}

func (s *Server) DeleteBook(ginCtx *gin.Context) {
	if _, ok := s.requireAdmin(ginCtx); !ok {
		return
	}
	book, err := s.DB.DeleteBook(ginCtx.Request.Context(), ginCtx.Param("isbn"))
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, book)
}
