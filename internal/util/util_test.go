package util

import (
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 5, ParseInt("5", 1))
	assert.Equal(t, 1, ParseInt("x", 1))
	assert.True(t, ParseBool("true", false))
	assert.False(t, ParseBool("nope", false))

	page, limit := ClampPage(0, 0, 20, 50)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	_, limit = ClampPage(2, 500, 20, 50)
	assert.Equal(t, 50, limit)
}

func TestReminderTime(t *testing.T) {
	assert.True(t, IsValidReminderTime("07:00"))
	assert.True(t, IsValidReminderTime("23:59"))
	assert.False(t, IsValidReminderTime("24:00"))
	assert.False(t, IsValidReminderTime("7:00"))
}

func TestRuneLenBetween(t *testing.T) {
	assert.True(t, RuneLenBetween("말씀 묵상", 2, 200))
	assert.False(t, RuneLenBetween(" a ", 2, 200))
	assert.True(t, RuneLenBetween("long enough content", 10, 0))
}

func TestValidateAvatarUpload(t *testing.T) {
	assert.NoError(t, ValidateAvatarUpload(&multipart.FileHeader{Filename: "me.PNG", Size: 1024}))
	assert.Error(t, ValidateAvatarUpload(&multipart.FileHeader{Filename: "me.bmp", Size: 1024}))
	assert.Error(t, ValidateAvatarUpload(&multipart.FileHeader{Filename: "me.jpg", Size: MaxAvatarSize + 1}))
	assert.Error(t, ValidateAvatarUpload(nil))
	assert.Equal(t, "image/webp", ImageContentType("a.webp"))
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", errors.Locked("discussion"), http.StatusForbidden, "LOCKED"},
		{"missing row", gorm.ErrRecordNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"other", assert.AnError, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondError(c, tc.err, "discussion")

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}
