package server

import (
	"strconv"
	"strings"

	"tandem/internal/models"

	"github.com/gofiber/fiber/v2"
)

// currentUserID returns the authenticated user set by AuthRequired.
func currentUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("userID").(string)
	return userID
}

// roomIDParam returns the trimmed :room_id route parameter.
func roomIDParam(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Params("room_id"))
}

// respondError writes err with the status its AppError code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// parseBody decodes the JSON request body into out. On failure it writes a 400 and
// reports false; the handler should return nil.
func parseBody(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	return true, nil
}

// parseLimit reads the limit query parameter. A missing value is 0, which selects the
// default. Malformed or zero values come back as -1 so the services reject them.
func parseLimit(c *fiber.Ctx) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit == 0 {
		return -1
	}
	return limit
}

// FeatureRequired rejects requests from users the named flag is off for.
func (s *Server) FeatureRequired(flag string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(flag, currentUserID(c)) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Feature "+flag+" is not enabled"))
		}
		return c.Next()
	}
}
