package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/app/http/middleware"
	billingsvc "tickethub/internal/billing"
	domainbilling "tickethub/internal/domain/billing"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/users"
)

type fakeService struct {
	initErr   error
	verifyErr error
	gotOrg    string
	gotPlan   string
	gotRef    string
}

func (f *fakeService) Initialize(_ context.Context, planID, orgID string) (*billingsvc.InitializeResult, error) {
	f.gotPlan, f.gotOrg = planID, orgID
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &billingsvc.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/abc",
		AccessCode:       "abc",
		Reference:        "sub_1",
	}, nil
}

func (f *fakeService) Verify(_ context.Context, reference, orgID string) (*billingsvc.VerifyResult, error) {
	f.gotRef, f.gotOrg = reference, orgID
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	org := organizations.NewOrganization(orgID, "Org", "a@b.com", nil)
	org.Subscription.Plan = "pro"
	return &billingsvc.VerifyResult{Organization: &org, Reference: reference}, nil
}

func (f *fakeService) Manage(_ context.Context, orgID string) (*billingsvc.ManageResult, error) {
	f.gotOrg = orgID
	return &billingsvc.ManageResult{}, nil
}

func (f *fakeService) Cancel(_ context.Context, orgID string) (*organizations.Organization, error) {
	f.gotOrg = orgID
	org := organizations.NewOrganization(orgID, "Org", "a@b.com", nil)
	return &org, nil
}

func (f *fakeService) ListPayments(context.Context, string, int) ([]domainbilling.Payment, error) {
	return []domainbilling.Payment{{Reference: "sub_1"}}, nil
}

func newRouter(svc Service, role, orgID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.KeyUserID, uint(1))
		c.Set(middleware.KeyRole, role)
		c.Set(middleware.KeyOrgID, orgID)
	})
	r.POST("/billing/initialize", h.Initialize)
	r.POST("/billing/verify", h.Verify)
	r.GET("/billing/verify", h.Verify)
	r.GET("/billing/manage", h.Manage)
	r.POST("/billing/manage/cancel", h.Cancel)
	r.GET("/billing/payments", h.Payments)
	return r
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInitializeUsesCallerOrganization(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, users.RoleUser, "org1")

	w := do(r, http.MethodPost, "/billing/initialize", gin.H{"planId": "pro"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "org1", svc.gotOrg)
	assert.Equal(t, "pro", svc.gotPlan)

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "https://checkout.paystack.com/abc", out["authorizationUrl"])
	assert.Equal(t, "sub_1", out["reference"])
}

func TestInitializeRejectsForeignOrganization(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, users.RoleUser, "org1")

	w := do(r, http.MethodPost, "/billing/initialize", gin.H{"planId": "pro", "orgId": "org2"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.gotOrg)
}

func TestInitializeAdminMayNameOrganization(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, users.RoleAdmin, "")

	w := do(r, http.MethodPost, "/billing/initialize", gin.H{"planId": "pro", "orgId": "org2"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "org2", svc.gotOrg)
}

func TestInitializeErrorStatuses(t *testing.T) {
	cases := map[error]int{
		billingsvc.ErrMissingFields:        http.StatusBadRequest,
		billingsvc.ErrInvalidPlan:          http.StatusBadRequest,
		billingsvc.ErrPlanNotConfigured:    http.StatusInternalServerError,
		billingsvc.ErrOrganizationNotFound: http.StatusNotFound,
		billingsvc.ErrMissingEmail:         http.StatusBadRequest,
		billingsvc.ErrGatewayNotConfigured: http.StatusInternalServerError,
	}
	for err, want := range cases {
		r := newRouter(&fakeService{initErr: err}, users.RoleUser, "org1")
		w := do(r, http.MethodPost, "/billing/initialize", gin.H{"planId": "pro"})
		assert.Equal(t, want, w.Code, err.Error())
		assert.Contains(t, w.Body.String(), err.Error())
	}
}

func TestVerifySurfacesGatewayStatus(t *testing.T) {
	svc := &fakeService{verifyErr: &billingsvc.PaymentStatusError{Status: "abandoned"}}
	r := newRouter(svc, users.RoleUser, "org1")

	w := do(r, http.MethodPost, "/billing/verify", gin.H{"reference": "sub_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "abandoned", out["status"])
}

func TestVerifyFromCallbackQuery(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, users.RoleUser, "org1")

	w := do(r, http.MethodGet, "/billing/verify?trxref=sub_9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sub_9", svc.gotRef)
	assert.Equal(t, "org1", svc.gotOrg)
	assert.Contains(t, w.Body.String(), `"plan":"pro"`)
}

func TestCancelWithoutBody(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, users.RoleUser, "org1")

	w := do(r, http.MethodPost, "/billing/manage/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "org1", svc.gotOrg)
	assert.Contains(t, w.Body.String(), `"plan":"starter"`)
}

func TestManageAndPayments(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, users.RoleUser, "org1")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/billing/manage", nil).Code)
	assert.Equal(t, "org1", svc.gotOrg)

	w := do(r, http.MethodGet, "/billing/payments", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sub_1")
}
