// This file contains the expected structure of incoming requests to the API. These structs are used to
// validate incoming requests, provide a consistent interface for handling requests, and to pass data to the
// appropriate handlers.
//
// Validation only checks that the required fields are present. Active is a pointer so that a missing flag
// can be told apart from false.

package common

type CreateUserRequest struct {
	Username string   `json:"username" validate:"required"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles" validate:"required,min=1"`
}

type UpdateUserRequest struct {
	ID       string   `json:"id" validate:"required,objectid"`
	Username string   `json:"username" validate:"required"`
	Roles    []string `json:"roles" validate:"required,min=1"`
	Active   *bool    `json:"active" validate:"required"`
	Password string   `json:"password"`
}

type DeleteUserRequest struct {
	ID string `json:"id" validate:"required,objectid"`
}
