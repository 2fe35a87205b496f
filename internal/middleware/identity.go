package middleware

import (
	"github.com/cardkiosk/cardkiosk/internal/pkg/identity"
	"github.com/gin-gonic/gin"
)

// ClaimantKey is the gin context key under which the resolved claimant
// identity is stored.
const ClaimantKey = "claimant_id"

// ClaimantIdentity resolves the privacy-preserving claimant identity from the
// requester's network origin and stores it in the context. The ledger keys
// one-claim-per-identity enforcement on this value.
func ClaimantIdentity(pepper string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ClaimantKey, identity.Fingerprint(pepper, c.ClientIP()))
		c.Next()
	}
}
