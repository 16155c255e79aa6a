package models

type User struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	PhoneNumber string         `json:"phoneNumber"`
	Status      PresenceStatus `json:"userStatus"`
}

type CreateUserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// UpdateUserRequest carries a partial update; nil fields are left unchanged.
type UpdateUserRequest struct {
	Name        *string
	Email       *string
	PhoneNumber *string
}

type CreateUserResponse struct {
	UserID int64 `json:"userId"`
}
