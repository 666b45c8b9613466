package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/models"
	"github.com/shopswift/storefront/services"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newCouponService(s *store) services.CouponService {
	return services.NewCouponService(couponRepo{s}, zap.NewNop(), services.WithClock(func() time.Time { return fixedNow }))
}

func coupon(code string, typ models.CouponType, value string) *models.Coupon {
	return &models.Coupon{
		Code:           code,
		Type:           typ,
		Value:          dec(value),
		ExpirationDate: fixedNow.Add(24 * time.Hour),
		Active:         true,
	}
}

func requireRejection(t *testing.T, err error, reason services.RejectionReason) {
	t.Helper()
	var rejection *services.CouponRejection
	require.True(t, errors.As(err, &rejection), "expected rejection, got %v", err)
	assert.Equal(t, reason, rejection.Reason)
}

func TestValidate_Percentage(t *testing.T) {
	s := newStore()
	s.addCoupon(coupon("SAVE10", models.CouponTypePercentage, "10"))

	v, err := newCouponService(s).Validate(context.Background(), "save10", dec("40"))
	require.NoError(t, err)
	assert.True(t, v.Discount.Equal(dec("4")), "got %s", v.Discount)
	assert.Equal(t, "SAVE10", v.Coupon.Code)
}

func TestValidate_PercentageRoundsHalfUp(t *testing.T) {
	s := newStore()
	s.addCoupon(coupon("THIRD", models.CouponTypePercentage, "15"))

	// 15% of 10.10 is 1.515
	v, err := newCouponService(s).Validate(context.Background(), "THIRD", dec("10.10"))
	require.NoError(t, err)
	assert.Equal(t, "1.52", v.Discount.StringFixed(2))
}

func TestValidate_FixedIsClampedToAmount(t *testing.T) {
	s := newStore()
	s.addCoupon(coupon("FLAT100", models.CouponTypeFixed, "100"))

	v, err := newCouponService(s).Validate(context.Background(), "FLAT100", dec("30"))
	require.NoError(t, err)
	assert.True(t, v.Discount.Equal(dec("30")))
}

func TestValidate_Rejections(t *testing.T) {
	s := newStore()
	inactive := coupon("OFF", models.CouponTypeFixed, "5")
	inactive.Active = false
	s.addCoupon(inactive)

	expired := coupon("OLD", models.CouponTypeFixed, "5")
	expired.ExpirationDate = fixedNow.Add(-time.Second)
	s.addCoupon(expired)

	exhausted := coupon("USED", models.CouponTypeFixed, "5")
	exhausted.UsageLimit = intPtr(3)
	exhausted.UsageCount = 3
	s.addCoupon(exhausted)

	minimum := coupon("BIG", models.CouponTypeFixed, "5")
	minimum.MinPurchase = decimal.NewNullDecimal(dec("50"))
	s.addCoupon(minimum)

	svc := newCouponService(s)
	cases := []struct {
		code   string
		reason services.RejectionReason
	}{
		{"MISSING", services.RejectNotFound},
		{"OFF", services.RejectInactive},
		{"OLD", services.RejectExpired},
		{"USED", services.RejectLimitExceeded},
		{"BIG", services.RejectBelowMinimum},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			_, err := svc.Validate(context.Background(), tc.code, dec("40"))
			requireRejection(t, err, tc.reason)
		})
	}
}

func TestValidate_ChecksInOrder(t *testing.T) {
	s := newStore()
	// Inactive, expired, exhausted and below minimum at once: inactive wins.
	c := coupon("ALLBAD", models.CouponTypeFixed, "5")
	c.Active = false
	c.ExpirationDate = fixedNow.Add(-time.Hour)
	c.UsageLimit = intPtr(1)
	c.UsageCount = 1
	c.MinPurchase = decimal.NewNullDecimal(dec("1000"))
	s.addCoupon(c)

	svc := newCouponService(s)
	_, err := svc.Validate(context.Background(), "ALLBAD", dec("10"))
	requireRejection(t, err, services.RejectInactive)

	c.Active = true
	_, err = svc.Validate(context.Background(), "ALLBAD", dec("10"))
	requireRejection(t, err, services.RejectExpired)

	c.ExpirationDate = fixedNow.Add(time.Hour)
	_, err = svc.Validate(context.Background(), "ALLBAD", dec("10"))
	requireRejection(t, err, services.RejectLimitExceeded)

	c.UsageLimit = nil
	_, err = svc.Validate(context.Background(), "ALLBAD", dec("10"))
	requireRejection(t, err, services.RejectBelowMinimum)
}

func TestValidate_ExactMinimumQualifies(t *testing.T) {
	s := newStore()
	c := coupon("EXACT", models.CouponTypeFixed, "5")
	c.MinPurchase = decimal.NewNullDecimal(dec("50"))
	s.addCoupon(c)

	v, err := newCouponService(s).Validate(context.Background(), "EXACT", dec("50.00"))
	require.NoError(t, err)
	assert.True(t, v.Discount.Equal(dec("5")))
}

func TestCouponRejection_AppError(t *testing.T) {
	notFound := (&services.CouponRejection{Reason: services.RejectNotFound, Message: "Coupon not found"}).AppError()
	assert.Equal(t, http.StatusNotFound, notFound.Status)

	expired := (&services.CouponRejection{Reason: services.RejectExpired, Message: "Coupon has expired"}).AppError()
	assert.Equal(t, apperrors.CodeInvalidPayload, expired.Code)
	assert.Equal(t, services.RejectExpired, expired.Details["reason"])
}

func TestCreateCoupon(t *testing.T) {
	s := newStore()
	svc := newCouponService(s)

	created, err := svc.CreateCoupon(context.Background(), &models.CreateCouponRequest{
		Code:           " welcome5 ",
		Type:           models.CouponTypeFixed,
		Value:          dec("5"),
		ExpirationDate: fixedNow.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME5", created.Code)
	assert.True(t, created.Active)

	_, err = svc.CreateCoupon(context.Background(), &models.CreateCouponRequest{
		Code:           "WELCOME5",
		Type:           models.CouponTypeFixed,
		Value:          dec("5"),
		ExpirationDate: fixedNow.Add(48 * time.Hour),
	})
	assert.Equal(t, apperrors.CodeConflict, apperrors.As(err).Code)
}

func TestCreateCoupon_InvalidValues(t *testing.T) {
	svc := newCouponService(newStore())

	cases := map[string]*models.CreateCouponRequest{
		"percentage over 100": {Code: "TOOMUCH", Type: models.CouponTypePercentage, Value: dec("150"), ExpirationDate: fixedNow.Add(time.Hour)},
		"zero value":          {Code: "NOTHING", Type: models.CouponTypeFixed, Value: decimal.Zero, ExpirationDate: fixedNow.Add(time.Hour)},
		"already expired":     {Code: "PAST", Type: models.CouponTypeFixed, Value: dec("1"), ExpirationDate: fixedNow.Add(-time.Hour)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateCoupon(context.Background(), req)
			assert.Equal(t, apperrors.CodeInvalidPayload, apperrors.As(err).Code)
		})
	}
}

func TestGetCoupon(t *testing.T) {
	s := newStore()
	s.addCoupon(coupon("SAVE10", models.CouponTypePercentage, "10"))
	svc := newCouponService(s)

	got, err := svc.GetCoupon(context.Background(), "save10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)

	_, err = svc.GetCoupon(context.Background(), "MISSING")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.As(err).Code)
}

func TestValidateCoupon_ReportsRejectionInResponse(t *testing.T) {
	s := newStore()
	s.addCoupon(coupon("SAVE10", models.CouponTypePercentage, "10"))
	svc := newCouponService(s)
	ctx := context.Background()

	resp, err := svc.ValidateCoupon(ctx, &models.ValidateCouponRequest{Code: "save10", Amount: dec("80")})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "SAVE10", resp.Code)
	assert.True(t, resp.Discount.Equal(dec("8")))

	resp, err = svc.ValidateCoupon(ctx, &models.ValidateCouponRequest{Code: "NOPE", Amount: dec("80")})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, string(services.RejectNotFound), resp.Reason)
	assert.True(t, resp.Discount.IsZero())
}

func TestDeactivateCoupon(t *testing.T) {
	s := newStore()
	s.addCoupon(coupon("SAVE10", models.CouponTypePercentage, "10"))
	svc := newCouponService(s)
	ctx := context.Background()

	require.NoError(t, svc.DeactivateCoupon(ctx, "save10"))

	_, err := svc.Validate(ctx, "SAVE10", dec("80"))
	requireRejection(t, err, services.RejectInactive)

	err = svc.DeactivateCoupon(ctx, "MISSING")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.As(err).Code)
}
