package middleware

import (
	"github.com/gin-gonic/gin"

	"pharmacore/internal/infrastructure/storage/postgres"
)

// Transaction injects the TxManager into the request context.
//
// Repositories and services resolve the TxManager from context, so this
// middleware must run before any handler that touches the database.
func Transaction(txManager *postgres.TxManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := postgres.WithTxManager(c.Request.Context(), txManager)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
