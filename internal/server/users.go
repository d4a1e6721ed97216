package server

import (
	"net/http"

	"github.com/zyenak/library-management/internal/domain"
	"github.com/zyenak/library-management/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) RegisterHandler(ginCtx *gin.Context) {
	var input models.RegisterInput
	if err := ginCtx.ShouldBindBodyWithJSON(&input); err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	user := models.User{
		ID:       uuid.NewString(),
		Username: input.Username,
		Password: string(hash),
		Role:     input.Role,
	}
	if _, err = s.DB.InsertUser(ginCtx.Request.Context(), user); err != nil {
		s.writeError(ginCtx, err)
		return
	}
	user.BorrowedBooks = []models.Book{}
	ginCtx.JSON(http.StatusCreated, user)
}

func (s *Server) GetUsersHandler(ginCtx *gin.Context) {
	if _, ok := s.requireAdmin(ginCtx); !ok {
		return
	}
	users, err := s.DB.GetAllUsers(ginCtx.Request.Context())
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, users)
}

func (s *Server) GetUserHandler(ginCtx *gin.Context) {
	if _, ok := s.requireAuth(ginCtx); !ok {
		return
	}
	user, err := s.DB.GetUser(ginCtx.Request.Context(), ginCtx.Param("id"))
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, user)
}

func (s *Server) DeleteUserHandler(ginCtx *gin.Context) {
	if _, ok := s.requireAdmin(ginCtx); !ok {
		return
	}
	user, err := s.DB.DeleteUser(ginCtx.Request.Context(), ginCtx.Param("id"))
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	// deleting an unknown user is a no-op, not an error
	ginCtx.JSON(http.StatusOK, user)
}

// ChangePasswordHandler lets a user rotate their own password after proving
// the old one; an admin may reset anyone's without it.
func (s *Server) ChangePasswordHandler(ginCtx *gin.Context) {
	caller, ok := s.requireAuth(ginCtx)
	if !ok {
		return
	}
	targetID := ginCtx.Param("id")
	if caller.ID != targetID && !caller.Role.CanManageCatalog() {
		s.writeError(ginCtx, domain.ErrNotAuthorized)
		return
	}
	var input models.ChangePasswordInput
	if err := ginCtx.ShouldBindBodyWithJSON(&input); err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if caller.ID == targetID {
		user, err := s.DB.GetUser(ginCtx.Request.Context(), targetID)
		if err != nil {
			s.writeError(ginCtx, err)
			return
		}
		if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.OldPassword)); err != nil {
			s.writeError(ginCtx, domain.ErrInvalidCredentials)
			return
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	if err = s.DB.UpdatePassword(ginCtx.Request.Context(), targetID, string(hash)); err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.Status(http.StatusNoContent)
}
