package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tickethub/internal/domain/billing"
	"tickethub/internal/domain/events"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/users"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

type AdminUser struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Lastname       string    `json:"lastname"`
	Tel            string    `json:"tel"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	IsVerified     bool      `json:"is_verified"`
	AuthProvider   string    `json:"auth_provider"`
	OrganizationID *string   `json:"organization_id,omitempty"`
	OrgRole        string    `json:"org_role,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type AdminOrganization struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Plan              string     `json:"plan"`
	Status            string     `json:"status"`
	NextPaymentDate   *time.Time `json:"next_payment_date,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CustomerCode      string     `json:"customer_code,omitempty"`
	SubscriptionCode  string     `json:"subscription_code,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type AdminPayment struct {
	ID             uint            `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Plan           string          `json:"plan"`
	Reference      string          `json:"reference"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	Source         string          `json:"source"`
	CreatedAt      string          `json:"created_at"`
}

type AdminStats struct {
	TotalUsers         int                        `json:"total_users"`
	TotalOrganizations int                        `json:"total_organizations"`
	TotalEvents        int                        `json:"total_events"`
	TotalRevenue       map[string]decimal.Decimal `json:"total_revenue"`
	RecentRevenue      map[string]decimal.Decimal `json:"recent_revenue"`
	OrgsPerPlan        map[string]int             `json:"orgs_per_plan"`
}

// majorUnits converts a gateway amount (pesewas, kobo) to the display amount.
func majorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func toAdminPayment(p billing.Payment) AdminPayment {
	return AdminPayment{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Plan:           p.Plan,
		Reference:      p.Reference,
		Amount:         majorUnits(p.AmountMinor),
		Currency:       p.Currency,
		Status:         p.Status,
		Source:         p.Source,
		CreatedAt:      p.CreatedAt.Format("2006-01-02 15:04"),
	}
}

func toAdminUser(u users.User) AdminUser {
	return AdminUser{
		ID:             u.ID,
		Name:           u.Name,
		Lastname:       u.Lastname,
		Tel:            u.Tel,
		Email:          u.Email,
		Role:           u.Role,
		IsVerified:     u.IsVerified,
		AuthProvider:   u.AuthProvider,
		OrganizationID: u.OrganizationID,
		OrgRole:        u.OrgRole,
		CreatedAt:      u.CreatedAt,
	}
}

func toAdminOrganization(o organizations.Organization) AdminOrganization {
	return AdminOrganization{
		ID:                o.ID,
		Name:              o.Name,
		Email:             o.Email,
		Plan:              plans.NormalizeID(o.Subscription.Plan),
		Status:            o.Subscription.Status,
		NextPaymentDate:   o.Subscription.NextPaymentDate,
		CancelAtPeriodEnd: o.Subscription.CancelAtPeriodEnd,
		CustomerCode:      o.Subscription.PaystackCustomerCode,
		SubscriptionCode:  o.Subscription.PaystackSubscriptionCode,
		CreatedAt:         o.CreatedAt,
	}
}

func (h *Handler) ListAllUsers(c *gin.Context) {
	var list []users.User
	if err := h.DB.WithContext(c.Request.Context()).Order("created_at DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	adminUsers := make([]AdminUser, 0, len(list))
	for _, u := range list {
		adminUsers = append(adminUsers, toAdminUser(u))
	}
	c.JSON(http.StatusOK, adminUsers)
}

func (h *Handler) ListOrganizations(c *gin.Context) {
	var list []organizations.Organization
	q := h.DB.WithContext(c.Request.Context()).Order("created_at DESC")
	if plan := c.Query("plan"); plan != "" {
		q = q.Where("subscription_plan = ?", plans.NormalizeID(plan))
	}
	if err := q.Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load organizations"})
		return
	}

	out := make([]AdminOrganization, 0, len(list))
	for _, o := range list {
		out = append(out, toAdminOrganization(o))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ListAllPayments(c *gin.Context) {
	var payments []billing.Payment
	if err := h.DB.WithContext(c.Request.Context()).Order("created_at DESC").Limit(500).Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	result := make([]AdminPayment, 0, len(payments))
	for _, p := range payments {
		result = append(result, toAdminPayment(p))
	}
	c.JSON(http.StatusOK, result)
}

type revenueRow struct {
	Currency string
	Total    int64
}

func revenueByCurrency(rows []revenueRow) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, r := range rows {
		cur := r.Currency
		if cur == "" {
			cur = "GHS"
		}
		out[cur] = out[cur].Add(majorUnits(r.Total))
	}
	return out
}

func (h *Handler) GetAdminStats(c *gin.Context) {
	db := h.DB.WithContext(c.Request.Context())
	var stats AdminStats
	var totalUsers, totalOrgs, totalEvents int64

	db.Model(&users.User{}).Count(&totalUsers)
	db.Model(&organizations.Organization{}).Count(&totalOrgs)
	db.Model(&events.Event{}).Count(&totalEvents)

	var all, recent []revenueRow
	db.Model(&billing.Payment{}).
		Where("status = ?", "success").
		Select("currency, COALESCE(SUM(amount_minor), 0) AS total").
		Group("currency").
		Scan(&all)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	db.Model(&billing.Payment{}).
		Where("status = ? AND created_at >= ?", "success", thirtyDaysAgo).
		Select("currency, COALESCE(SUM(amount_minor), 0) AS total").
		Group("currency").
		Scan(&recent)

	stats.TotalUsers = int(totalUsers)
	stats.TotalOrganizations = int(totalOrgs)
	stats.TotalEvents = int(totalEvents)
	stats.TotalRevenue = revenueByCurrency(all)
	stats.RecentRevenue = revenueByCurrency(recent)

	type PlanCount struct {
		Plan  string
		Count int
	}
	var counts []PlanCount
	db.Model(&organizations.Organization{}).
		Select("subscription_plan AS plan, COUNT(id) AS count").
		Group("subscription_plan").
		Scan(&counts)

	stats.OrgsPerPlan = map[string]int{}
	for _, pc := range counts {
		stats.OrgsPerPlan[plans.NormalizeID(pc.Plan)] += pc.Count
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetOrganizationDetails(c *gin.Context) {
	id := c.Param("id")
	db := h.DB.WithContext(c.Request.Context())

	var org organizations.Organization
	if err := db.First(&org, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var members []users.User
	var payments []billing.Payment
	if err := db.Where("organization_id = ?", id).Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}
	if err := db.Where("organization_id = ?", id).Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	memberList := make([]AdminUser, 0, len(members))
	for _, m := range members {
		memberList = append(memberList, toAdminUser(m))
	}
	paymentList := make([]AdminPayment, 0, len(payments))
	for _, p := range payments {
		paymentList = append(paymentList, toAdminPayment(p))
	}
	c.JSON(http.StatusOK, gin.H{
		"organization": toAdminOrganization(org),
		"members":      memberList,
		"payments":     paymentList,
	})
}

func (h *Handler) GetUserDetails(c *gin.Context) {
	var user users.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toAdminUser(user)})
}
