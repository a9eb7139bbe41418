package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/castle/internal/domain"
)

// SetupStaticRoutes serves a client build from dir. Unknown non-API paths
// fall back to index.html so client-side routing works.
func SetupStaticRoutes(r *gin.Engine, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("static dir %s is not a directory", dir)
	}
	fsys := os.DirFS(dir)

	r.NoRoute(func(c *gin.Context) {
		method := c.Request.Method
		if (method != http.MethodGet && method != http.MethodHead) || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
			return
		}

		name := strings.TrimPrefix(path.Clean(c.Request.URL.Path), "/")
		if name == "" || !isFile(fsys, name) {
			name = "index.html"
		}
		serveStaticFile(c, fsys, name)
	})

	return nil
}

func isFile(fsys fs.FS, name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}

func serveStaticFile(c *gin.Context, fsys fs.FS, name string) {
	file, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.String(http.StatusNotFound, "File not found")
			return
		}
		c.String(http.StatusInternalServerError, "Failed to open file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to read file")
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	c.Data(http.StatusOK, contentType, content)
}
