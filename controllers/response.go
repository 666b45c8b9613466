package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/middleware"
	"github.com/shopswift/storefront/models"
)

// respond writes the success envelope.
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

func respondPage(c *gin.Context, status int, data any, meta models.MetaData) {
	c.JSON(status, gin.H{"data": data, "meta": meta})
}

// fail hands err to the error middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func invalidPayload(c *gin.Context, err error) {
	fail(c, apperrors.InvalidPayload("Invalid request").
		WithDetails(map[string]any{"reason": err.Error()}))
}

func cartKey(c *gin.Context) (models.CartKey, bool) {
	key, err := middleware.CartKeyFrom(c)
	if err != nil {
		fail(c, apperrors.Unauthorized("Authentication required"))
		return models.CartKey{}, false
	}
	return key, true
}

// parsePaginationParams extracts and validates pagination parameters.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limitInt = min(l, MaxLimit)
	}

	return pageInt, limitInt
}
