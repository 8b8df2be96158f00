package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/analysis"
	"github.com/macchain/backend/internal/auth"
	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/community"
	apierrors "github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/notifications"
	"github.com/macchain/backend/internal/readingplan"
	"github.com/macchain/backend/internal/repository"
	"github.com/macchain/backend/internal/scheduler"
	"github.com/macchain/backend/internal/settings"
	"github.com/macchain/backend/internal/stats"
	"github.com/macchain/backend/internal/storage"
	"github.com/macchain/backend/internal/util"
	"gorm.io/gorm"
)

// Deps are the services the HTTP layer calls. Uploader, DailyAnalysis and
// Reminders may be nil; their routes then answer 503.
type Deps struct {
	DB            *gorm.DB
	Auth          *auth.Service
	Plan          *readingplan.Service
	Stats         *stats.Service
	Settings      *settings.Service
	Community     *community.Service
	Analysis      *analysis.Service
	Notifications *notifications.Service
	Uploader      storage.AvatarUploader
	DailyAnalysis *scheduler.DailyAnalysisScheduler
	Reminders     *scheduler.ReminderScheduler
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db            *gorm.DB
	auth          *auth.Service
	users         repository.UserRepository
	plan          *readingplan.Service
	stats         *stats.Service
	settings      *settings.Service
	community     *community.Service
	analysis      *analysis.Service
	notifications *notifications.Service
	uploader      storage.AvatarUploader
	dailyAnalysis *scheduler.DailyAnalysisScheduler
	reminders     *scheduler.ReminderScheduler
	now           func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		db:            d.DB,
		auth:          d.Auth,
		users:         repository.NewUserRepository(d.DB),
		plan:          d.Plan,
		stats:         d.Stats,
		settings:      d.Settings,
		community:     d.Community,
		analysis:      d.Analysis,
		notifications: d.Notifications,
		uploader:      d.Uploader,
		dailyAnalysis: d.DailyAnalysis,
		reminders:     d.Reminders,
		now:           time.Now,
	}
}

// requestContext carries the caller's X-Client-ID into the services so the
// row changes they publish can be matched to this client
func requestContext(c *gin.Context) context.Context {
	return events.WithOrigin(c.Request.Context(), util.ClientID(c))
}

// respondServiceError maps service errors onto API errors
func respondServiceError(c *gin.Context, err error, resource string) {
	var (
		communityErr *community.ValidationError
		analysisErr  *analysis.ValidationError
		settingsErr  *settings.FieldError
	)

	switch {
	case errors.As(err, &communityErr):
		util.RespondValidationError(c, communityErr.Field, communityErr.Message)
	case errors.As(err, &analysisErr):
		util.RespondValidationError(c, analysisErr.Field, analysisErr.Message)
	case errors.As(err, &settingsErr):
		util.RespondValidationError(c, settingsErr.Field, settingsErr.Message)

	case errors.Is(err, community.ErrNotFound),
		errors.Is(err, analysis.ErrNotFound),
		errors.Is(err, notifications.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		util.RespondNotFound(c, resource)
	case errors.Is(err, community.ErrForbidden):
		util.RespondForbidden(c, err.Error())
	case errors.Is(err, community.ErrLocked):
		util.RespondWithAPIError(c, apierrors.Locked(resource))

	case errors.Is(err, bible.ErrInvalidDate):
		util.RespondWithAPIError(c, apierrors.InvalidDate(c.Param("date")))
	case errors.Is(err, bible.ErrInvalidDay):
		util.RespondValidationError(c, "day", err.Error())
	case errors.Is(err, bible.ErrUnknownBook):
		util.RespondValidationError(c, "book", err.Error())
	case errors.Is(err, bible.ErrInvalidChapter):
		util.RespondValidationError(c, "chapter", err.Error())
	case errors.Is(err, readingplan.ErrInvalidReading):
		util.RespondValidationError(c, "reading_id", err.Error())
	case errors.Is(err, readingplan.ErrInvalidRange):
		util.RespondBadRequest(c, err.Error())

	case errors.Is(err, auth.ErrUserExists):
		util.RespondWithAPIError(c, apierrors.AlreadyExists("user"))
	case errors.Is(err, auth.ErrUsernameExists):
		apiErr := apierrors.AlreadyExists("username")
		apiErr.Field = "username"
		util.RespondWithAPIError(c, apiErr)
	case errors.Is(err, auth.ErrInvalidCredentials):
		util.RespondUnauthorized(c, "invalid email or password")
	case errors.Is(err, auth.ErrInvalidResetToken):
		util.RespondBadRequest(c, err.Error())
	case errors.Is(err, auth.ErrEmailUnavailable):
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("email"))

	default:
		util.RespondError(c, err, resource)
	}
}
