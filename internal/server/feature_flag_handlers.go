package server

import "github.com/gofiber/fiber/v2"

// GetMyFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Description Configured flags and their value for the caller.
// @Tags feature-flags
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Security BearerAuth
// @Router /feature-flags/me [get]
func (s *Server) GetMyFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
