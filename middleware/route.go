package middleware

import "github.com/gin-gonic/gin"

// Registrar is implemented by feature handlers that mount their own
// routes. The auth middleware is passed in so each handler decides
// which of its endpoints are guarded.
type Registrar interface {
	RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc)
}

// Mount registers every handler on the router.
func Mount(r gin.IRouter, auth gin.HandlerFunc, regs ...Registrar) {
	for _, reg := range regs {
		reg.RegisterRoutes(r, auth)
	}
}
