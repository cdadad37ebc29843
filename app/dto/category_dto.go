package dto

import "time"

// CreateCategoryRequest represents the request to create a category
type CreateCategoryRequest struct {
	CustomerID uint   `json:"-"`
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Color      string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// UpdateCategoryRequest represents the request to update a category
type UpdateCategoryRequest struct {
	UUID       string  `json:"-" validate:"required,uuid"`
	CustomerID uint    `json:"-"`
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Color      *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// CategoryDTO represents a category in responses
type CategoryDTO struct {
	UUID         string     `json:"uuid"`
	Name         string     `json:"name"`
	Color        string     `json:"color"`
	ContactCount int        `json:"contact_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// ListCategoriesResponse represents the response to list categories
type ListCategoriesResponse struct {
	Items []CategoryDTO `json:"items"`
}

// CategoryActionResponse represents the response to a category mutation
type CategoryActionResponse struct {
	Message  string      `json:"message"`
	Category CategoryDTO `json:"category"`
}

// DeleteCategoryResponse represents the response to delete a category.
// DetachedContacts counts contacts that lost the association; none are deleted.
type DeleteCategoryResponse struct {
	Message          string `json:"message"`
	DetachedContacts int64  `json:"detached_contacts"`
}
