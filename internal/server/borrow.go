package server

import (
	"net/http"

	"github.com/zyenak/library-management/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// Any authenticated caller may borrow or return on behalf of a user id;
// there is no ownership check tying the caller to the target user.

func (s *Server) BorrowBook(ginCtx *gin.Context) {
	if _, ok := s.requireAuth(ginCtx); !ok {
		return
	}
	var input models.BorrowInput
	if err := ginCtx.ShouldBindBodyWithJSON(&input); err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := s.DB.BorrowBook(ginCtx.Request.Context(), input.UserID, ginCtx.Param("isbn"))
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, user)
}

func (s *Server) ReturnBook(ginCtx *gin.Context) {
	if _, ok := s.requireAuth(ginCtx); !ok {
		return
	}
	var input models.BorrowInput
	if err := ginCtx.ShouldBindBodyWithJSON(&input); err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := s.DB.ReturnBook(ginCtx.Request.Context(), input.UserID, ginCtx.Param("isbn"))
	if err != nil {
		s.writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, user)
}
