package admin

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tickethub/internal/domain/billing"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/users"
)

func TestMajorUnits(t *testing.T) {
	assert.Equal(t, "20", majorUnits(2000).String())
	assert.Equal(t, "75.5", majorUnits(7550).String())
	assert.Equal(t, "0", majorUnits(0).String())
}

func TestRevenueByCurrency(t *testing.T) {
	got := revenueByCurrency([]revenueRow{
		{Currency: "GHS", Total: 2000},
		{Currency: "", Total: 7500},
		{Currency: "NGN", Total: 100},
	})
	assert.Equal(t, "95", got["GHS"].String())
	assert.Equal(t, "1", got["NGN"].String())
}

func TestToAdminPayment(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	p := toAdminPayment(billing.Payment{ID: 3, OrganizationID: "org1", Plan: "pro", Reference: "sub_1", AmountMinor: 2000, Currency: "GHS", Status: "success", Source: "webhook", CreatedAt: at})
	assert.Equal(t, "20", p.Amount.String())
	assert.Equal(t, "2025-06-01 09:30", p.CreatedAt)
	assert.Equal(t, "webhook", p.Source)
}

func TestToAdminOrganizationNormalizesPlan(t *testing.T) {
	o := organizations.NewOrganization("org1", "Org", "a@b.com", nil)
	o.Subscription.Plan = "FREE"
	assert.Equal(t, "starter", toAdminOrganization(o).Plan)
}

func TestToAdminUserOmitsPassword(t *testing.T) {
	hash := "secret-hash"
	org := "org1"
	u := toAdminUser(users.User{ID: 7, Email: "a@b.com", Password: &hash, OrganizationID: &org, OrgRole: "owner"})
	assert.Equal(t, uint(7), u.ID)
	assert.Equal(t, "org1", *u.OrganizationID)

	raw, err := json.Marshal(u)
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), hash)
}
