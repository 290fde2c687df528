package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// OpenAPISpecPath OpenAPI文档位置，相对工作目录
var OpenAPISpecPath = "docs/api/openapi.yaml"

// registerOpenAPIRoutes 提供 /openapi 与 /docs/*
func registerOpenAPIRoutes(engine *gin.Engine) {
	engine.GET("/openapi", serveOpenAPI)
	engine.GET("/openapi.yaml", serveOpenAPI)
	engine.GET("/docs/redoc", serveRedoc)
	engine.GET("/docs/ui", serveSwaggerUI)
}

func serveOpenAPI(c *gin.Context) {
	if _, err := os.Stat(OpenAPISpecPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "OpenAPI文档不存在"})
		return
	}
	c.Header("Content-Type", "application/yaml; charset=utf-8")
	c.File(OpenAPISpecPath)
}

// vendorAsset 本地静态资源存在时使用本地路径，否则回退到CDN
func vendorAsset(local, cdn string) string {
	if _, err := os.Stat(strings.TrimPrefix(local, "/")); err == nil {
		return local
	}
	return cdn
}

const redocPage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Card Game API - Redoc</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
      body{margin:0;padding:0;font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif}
      .topbar{position:fixed;top:0;left:0;right:0;height:44px;display:flex;align-items:center;justify-content:space-between;padding:0 12px;background:#f8fafc;border-bottom:1px solid #e5e7eb;z-index:9999}
      .nav a{color:#0f172a;text-decoration:none;margin-left:12px;padding:4px 10px;border-radius:6px;border:1px solid #d1d5db}
      .wrap{margin-top:44px}
    </style>
  </head>
  <body>
    <div class="topbar">
      <strong>Card Game API</strong>
      <div class="nav">
        <a href="/openapi" target="_blank">OpenAPI YAML</a>
        <a href="/docs/ui">Swagger UI</a>
      </div>
    </div>
    <div class="wrap"><redoc spec-url="/openapi" expand-responses="200,201"></redoc></div>
    <script src="{{script}}"></script>
  </body>
</html>`

func serveRedoc(c *gin.Context) {
	script := vendorAsset("/static/vendors/redoc/redoc.standalone.js",
		"https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js")
	html := strings.Replace(redocPage, "{{script}}", script, 1)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

const swaggerPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Card Game API - Swagger UI</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <link rel="stylesheet" href="{{css}}">
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="{{bundle}}" crossorigin></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi',
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis],
        layout: 'BaseLayout'
      })
    </script>
  </body>
</html>`

func serveSwaggerUI(c *gin.Context) {
	html := strings.NewReplacer(
		"{{css}}", vendorAsset("/static/vendors/swagger-ui/swagger-ui.css",
			"https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"),
		"{{bundle}}", vendorAsset("/static/vendors/swagger-ui/swagger-ui-bundle.js",
			"https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"),
	).Replace(swaggerPage)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
