// cmd/main.go
package main

import (
	"device-management-api/app"
)

// @title           Device Management API
// @version         1.0
// @description     Device management service with JWT authentication and refresh token rotation.

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
