//go:build !swagger

package api

import "github.com/gin-gonic/gin"

// registerSwaggerRoutes 默认构建不挂载 /swagger
func registerSwaggerRoutes(*gin.Engine) {}
