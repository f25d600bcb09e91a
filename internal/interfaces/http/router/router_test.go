package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group)
	assert.Len(t, r.registrars, 1)

	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	engine := gin.New()

	var order []string
	group := NewDomainGroup("store", "/store").Use(func(c *gin.Context) {
		order = append(order, "middleware")
		c.Next()
	})
	group.GETAndPOST("/items/:id", func(c *gin.Context) {
		order = append(order, c.Request.Method+" "+c.Param("id"))
		c.Status(http.StatusOK)
	})
	group.Group("nested", "/nested").GET("/leaf", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	assert.Equal(t, "store", group.Name())
	assert.Equal(t, "/store", group.Prefix())

	NewRouter(engine).Register(group).Setup()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(method, "/store/items/42", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, []string{"middleware", "GET 42", "middleware", "POST 42"}, order)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/store/nested/leaf", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}
