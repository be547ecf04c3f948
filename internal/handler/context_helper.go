package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/middleware"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

type periodSource interface {
	FindActivePeriod(ctx context.Context) (models.ActivePeriod, error)
}

// resolvePeriod loads the active academic period for the request. Every
// period-scoped operation resolves it here and passes it down explicitly.
func resolvePeriod(ctx context.Context, source periodSource) (models.ActivePeriod, error) {
	period, err := source.FindActivePeriod(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ActivePeriod{}, appErrors.Clone(appErrors.ErrValidation, "no active academic period is configured")
		}
		return models.ActivePeriod{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active period")
	}
	return period, nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
