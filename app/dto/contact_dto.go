package dto

import "time"

// CreateContactRequest represents the request to create a contact
type CreateContactRequest struct {
	CustomerID  uint     `json:"-"`
	Name        string   `json:"name" validate:"required,min=1,max=255"`
	Phone       string   `json:"phone" validate:"required,min=5,max=32"`
	Email       *string  `json:"email,omitempty" validate:"omitempty,email"`
	CategoryIDs []string `json:"category_ids,omitempty" validate:"omitempty,dive,uuid"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdateContactRequest represents the request to update a contact
type UpdateContactRequest struct {
	UUID        string    `json:"-" validate:"required,uuid"`
	CustomerID  uint      `json:"-"`
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Phone       *string   `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	Email       *string   `json:"email,omitempty" validate:"omitempty,email"`
	CategoryIDs *[]string `json:"category_ids,omitempty" validate:"omitempty,dive,uuid"`
	Tags        *[]string `json:"tags,omitempty"`
}

// ContactDTO represents a contact in responses
type ContactDTO struct {
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       *string    `json:"email,omitempty"`
	CategoryIDs []string   `json:"category_ids"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ListContactsRequest represents the request to list contacts
type ListContactsRequest struct {
	CustomerID uint    `json:"-"`
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	CategoryID *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Page       int     `json:"page" validate:"omitempty,min=1"`
	PageSize   int     `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListContactsResponse represents the response to list contacts
type ListContactsResponse struct {
	Items      []ContactDTO   `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// ContactActionResponse represents the response to a contact mutation
type ContactActionResponse struct {
	Message string     `json:"message"`
	Contact ContactDTO `json:"contact"`
}

// DeleteContactResponse represents the response to delete a contact
type DeleteContactResponse struct {
	Message string `json:"message"`
}
