package middleware

import (
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderActorID = "X-Actor-ID"

	ctxActor = "actor"
)

// Actor resolves who is calling from X-Actor-ID, the client IP and the
// user agent, and stores it for handlers. A malformed actor id is treated
// as anonymous.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxActor, resolveActor(c))
		c.Next()
	}
}

// ActorFrom returns the actor stored by Actor, resolving it on demand when
// the middleware did not run.
func ActorFrom(c *gin.Context) ports.Actor {
	if v, ok := c.Get(ctxActor); ok {
		if a, ok := v.(ports.Actor); ok {
			return a
		}
	}
	return resolveActor(c)
}

func resolveActor(c *gin.Context) ports.Actor {
	actor := ports.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if raw := c.GetHeader(HeaderActorID); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.UserID = &id
		}
	}
	return actor
}
