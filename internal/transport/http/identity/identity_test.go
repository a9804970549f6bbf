package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		role    string
		want    Actor
		wantErr bool
	}{
		{"seller", "7", "SELLER", Actor{SellerID: 7}, false},
		{"admin without id", "", "admin", Actor{Admin: true}, false},
		{"admin with id", "3", "ADMIN", Actor{SellerID: 3, Admin: true}, false},
		{"missing identity", "", "", Actor{}, true},
		{"garbage id", "abc", "", Actor{}, true},
		{"negative id", "-2", "", Actor{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parse(tt.id, tt.role)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScope(t *testing.T) {
	assert.Nil(t, Actor{SellerID: 3, Admin: true}.Scope())
	scope := Actor{SellerID: 3}.Scope()
	require.NotNil(t, scope)
	assert.Equal(t, int64(3), *scope)
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, Middleware(), RequireAdmin)

	seller := httptest.NewRequest(http.MethodGet, "/admin", nil)
	seller.Header.Set(HeaderSellerID, "5")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, seller)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := httptest.NewRequest(http.MethodGet, "/admin", nil)
	admin.Header.Set(HeaderRole, "ADMIN")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
