package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

type tokenValidatorStub struct {
	claims map[string]*models.JWTClaims
}

func (s tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := tokenValidatorStub{claims: map[string]*models.JWTClaims{
		"staff":  {UserID: "staff-1", Role: models.RoleStaff},
		"parent": {UserID: "parent-1", Role: models.RoleParent},
	}}
	router := gin.New()
	router.Use(JWT(tokens))
	router.GET("/read", func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).UserID)
	})
	router.POST("/write", RequireRoles(models.RoleAdmin, models.RoleStaff), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestJWTAndRequireRoles(t *testing.T) {
	router := newAuthRouter()

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{name: "missing header", method: http.MethodGet, path: "/read", want: http.StatusUnauthorized},
		{name: "wrong scheme", method: http.MethodGet, path: "/read", header: "Basic staff", want: http.StatusUnauthorized},
		{name: "unknown token", method: http.MethodGet, path: "/read", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "reader", method: http.MethodGet, path: "/read", header: "Bearer parent", want: http.StatusOK},
		{name: "forbidden role", method: http.MethodPost, path: "/write", header: "Bearer parent", want: http.StatusForbidden},
		{name: "allowed role", method: http.MethodPost, path: "/write", header: "bearer staff", want: http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type observation struct {
	method, path string
	status       int
}

type observerStub struct {
	seen []observation
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.seen = append(o.seen, observation{method: method, path: path, status: status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/enrollments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/enrollments/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []observation{
		{method: http.MethodGet, path: "/enrollments/:id", status: http.StatusOK},
		{method: http.MethodGet, path: "unmatched", status: http.StatusNotFound},
	}, observer.seen)
}
