package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestFromContextDefaults(t *testing.T) {
	q := FromContext(queryContext(t, ""))
	assert.Equal(t, Query{Page: DefaultPage, Size: DefaultSize}, q)
}

func TestFromContextClamping(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Query
	}{
		{"explicit", "page=3&limit=20", Query{Page: 3, Size: 20}},
		{"negative page", "page=-1&limit=10", Query{Page: 1, Size: 10}},
		{"zero limit", "page=2&limit=0", Query{Page: 2, Size: DefaultSize}},
		{"over max", "page=1&limit=1000", Query{Page: 1, Size: MaxSize}},
		{"garbage", "page=abc&limit=xyz", Query{Page: DefaultPage, Size: DefaultSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromContext(queryContext(t, tt.query)))
		})
	}
}
