package models

// Role is a closed set. The store keeps it as text, but nothing outside this
// package should compare raw strings.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// CanManageCatalog reports whether the role may change the book catalog and
// administer user accounts.
func (r Role) CanManageCatalog() bool {
	return r == RoleAdmin
}

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Password      string `json:"-"`
	Role          Role   `json:"role"`
	BorrowedBooks []Book `json:"borrowedBooks"`
}

type Book struct {
	ISBN     string  `json:"isbn"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=4"`
	Role     Role   `json:"role" binding:"required,role"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type CreateBookInput struct {
	ISBN     string  `json:"isbn" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category" binding:"required"`
	Price    float64 `json:"price" binding:"gte=0"`
	Quantity int     `json:"quantity" binding:"gte=0"`
}

// UpdateBookInput carries only the fields the caller wants changed; nil
// pointers leave the stored value untouched.
type UpdateBookInput struct {
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	Price    *float64 `json:"price" binding:"omitempty,gte=0"`
	Quantity *int     `json:"quantity" binding:"omitempty,gte=0"`
}

type BorrowInput struct {
	UserID string `json:"userId" binding:"required"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword" binding:"required,min=4"`
}
