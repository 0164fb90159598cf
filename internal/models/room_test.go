package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestRoom_RecomputeFilled(t *testing.T) {
	r := &Room{User1: strPtr("a")}
	r.RecomputeFilled()
	assert.False(t, r.Filled)

	r.User2 = strPtr("b")
	r.RecomputeFilled()
	assert.True(t, r.Filled)

	r.User1 = nil
	r.RecomputeFilled()
	assert.False(t, r.Filled)
}

func TestRoom_Membership(t *testing.T) {
	r := &Room{User1: strPtr("a"), User2: strPtr("b")}

	assert.True(t, r.HasMember("a"))
	assert.True(t, r.HasMember("b"))
	assert.False(t, r.HasMember("c"))
	assert.False(t, r.HasMember(""))
	assert.Equal(t, []string{"a", "b"}, r.Occupants())

	p, ok := r.Partner("a")
	assert.True(t, ok)
	assert.Equal(t, "b", p)

	r.User2 = nil
	_, ok = r.Partner("a")
	assert.False(t, ok)
	assert.False(t, r.IsEmpty())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 400, StatusFor(NewValidationError("x")))
	assert.Equal(t, 404, StatusFor(NewNotFoundError("Room", "r1")))
	assert.Equal(t, 403, StatusFor(NewForbiddenError("x")))
	assert.Equal(t, 409, StatusFor(NewConflictError("x")))
	assert.Equal(t, 401, StatusFor(NewUnauthorizedError("x")))
	assert.Equal(t, 502, StatusFor(NewUpstreamError("x", nil)))
	assert.Equal(t, 500, StatusFor(NewInternalError(nil)))
	assert.Equal(t, 500, StatusFor(assert.AnError))
}
