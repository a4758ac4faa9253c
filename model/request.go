// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new user.
// It includes validation tags to ensure data integrity at the entry point.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2,max=20"`
	Password string `json:"password" validate:"required,min=6,max=32"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateDeviceRequest defines the payload for registering a device.
type CreateDeviceRequest struct {
	DeviceName  string `json:"device_name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateDeviceRequest defines the payload for updating a device.
type UpdateDeviceRequest struct {
	DeviceName  string `json:"device_name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}
