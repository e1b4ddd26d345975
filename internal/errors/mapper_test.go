package errors_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	svcErr "github.com/oggyb/galatea/internal/errors"
)

func TestMap(t *testing.T) {
	cases := []struct {
		name   string
		in     error
		kind   svcErr.Kind
		status int
	}{
		{"not found", gorm.ErrRecordNotFound, svcErr.KindNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), svcErr.KindNotFound, http.StatusNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, svcErr.KindConflict, http.StatusConflict},
		{"fk", gorm.ErrForeignKeyViolated, svcErr.KindInvalidArgument, http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, svcErr.KindTimeout, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, svcErr.KindCanceled, 499},
		{"other", errors.New("boom"), svcErr.KindInternal, http.StatusInternalServerError},
		{"typed passes through", svcErr.AlreadySwiped(), svcErr.KindAlreadySwiped, http.StatusConflict},
		{"upstream", svcErr.Upstream("completion failed", errors.New("502")), svcErr.KindUpstream, http.StatusBadGateway},
		{"unauthenticated", svcErr.Unauthenticated("no session"), svcErr.KindUnauthenticated, http.StatusUnauthorized},
		{"forbidden", svcErr.Forbidden("admin only"), svcErr.KindForbidden, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, svcErr.KindOf(tc.in))
			assert.Equal(t, tc.status, svcErr.HTTPStatus(tc.in))
		})
	}
	assert.Nil(t, svcErr.Map(nil))
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("svc: %w", svcErr.NotFound("conversation not found"))
	assert.True(t, errors.Is(err, svcErr.ErrNotFound))
	assert.False(t, errors.Is(err, svcErr.ErrConflict))

	assert.True(t, errors.Is(svcErr.Upstream("x", context.DeadlineExceeded), context.DeadlineExceeded))
}

func TestPublicMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "internal error", svcErr.PublicMessage(errors.New("dial tcp 10.0.0.1: refused")))
	assert.Equal(t, "already swiped", svcErr.PublicMessage(svcErr.AlreadySwiped()))
	assert.Equal(t, "record not found", svcErr.PublicMessage(gorm.ErrRecordNotFound))
}
