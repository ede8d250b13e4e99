package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tickethub/internal/domain/access"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
)

const KeyPolicy = "access_policy"

// RequireOrganization rejects callers that have not joined or created an
// organization yet.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if OrgID(c) == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Create or join an organization first",
			})
			return
		}
		c.Next()
	}
}

func computePolicy(c *gin.Context, db *gorm.DB, catalog plans.Catalog) (access.Policy, bool) {
	orgID := OrgID(c)
	if orgID == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Create or join an organization first",
		})
		return access.Policy{}, false
	}

	var org organizations.Organization
	if err := db.WithContext(c.Request.Context()).First(&org, "id = ?", orgID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error": "Organization not found",
		})
		return access.Policy{}, false
	}

	policy := access.ComputePolicy(time.Now(), org, catalog)
	c.Set(KeyPolicy, policy)
	return policy, true
}

// LoadPolicy resolves the caller's organization policy and stores it on the
// context without gating anything.
func LoadPolicy(db *gorm.DB, catalog plans.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := computePolicy(c, db, catalog); !ok {
			return
		}
		c.Next()
	}
}

// RequireFeature lets the request through only when the caller's
// organization currently has feature.
func RequireFeature(db *gorm.DB, catalog plans.Catalog, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, ok := computePolicy(c, db, catalog)
		if !ok {
			return
		}
		if !policy.Allows(feature) {
			msg := "Your plan does not include this feature"
			if policy.State == access.AccessGrace {
				msg = "Your last payment failed. Update your card to restore this feature"
			}
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":   msg,
				"feature": feature,
				"plan":    policy.Plan.ID,
			})
			return
		}
		c.Next()
	}
}

// Policy returns the policy stored by LoadPolicy or RequireFeature.
func Policy(c *gin.Context) (access.Policy, bool) {
	v, ok := c.Get(KeyPolicy)
	if !ok {
		return access.Policy{}, false
	}
	p, ok := v.(access.Policy)
	return p, ok
}
