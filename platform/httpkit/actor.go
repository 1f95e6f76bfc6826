package httpkit

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActorHeader carries the acting user's ID on write requests. Authentication
// lives in front of this service; the header is trusted as-is.
const ActorHeader = "X-Actor-ID"

// ActorID extracts the acting user from the request, or nil when the write
// is anonymous or system-driven.
func ActorID(c *gin.Context) *uuid.UUID {
	raw := strings.TrimSpace(c.GetHeader(ActorHeader))
	if raw == "" {
		return nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &parsed
}
