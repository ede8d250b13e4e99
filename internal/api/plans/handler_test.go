package plans

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/domain/plans"
	"tickethub/internal/infra/paystack"
)

type fakeGateway struct {
	plans map[string]*paystack.Plan
}

func (f fakeGateway) Configured() bool { return f.plans != nil }

func (f fakeGateway) FetchPlan(_ context.Context, code string) (*paystack.Plan, error) {
	p, ok := f.plans[code]
	if !ok {
		return nil, &paystack.APIError{StatusCode: http.StatusNotFound, Message: "Plan not found"}
	}
	return p, nil
}

func serve(h *Handler, method, path string, fn gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, path, fn)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestListPlansCheapestFirst(t *testing.T) {
	h := NewHandler(plans.NewCatalog("PLN_pro", "PLN_biz"), nil, nil)
	w := serve(h, http.MethodGet, "/plans", h.ListPlans)
	require.Equal(t, http.StatusOK, w.Code)

	var got []plans.Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, plans.Starter, got[0].ID)
	assert.Equal(t, plans.Business, got[2].ID)
}

func TestCheckPlans(t *testing.T) {
	gw := fakeGateway{plans: map[string]*paystack.Plan{
		"PLN_pro": {PlanCode: "PLN_pro", Amount: 2000, Currency: "GHS"},
	}}
	h := NewHandler(plans.NewCatalog("PLN_pro", "PLN_gone"), gw, nil)
	w := serve(h, http.MethodPost, "/admin/plans/check", h.CheckPlans)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Plans    []PlanCheck `json:"plans"`
		OK       int         `json:"ok"`
		Mismatch int         `json:"mismatch"`
		Missing  int         `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.OK)
	assert.Equal(t, 1, body.Missing)
	assert.Equal(t, 0, body.Mismatch)
	assert.Len(t, body.Plans, 2)
}

func TestCheckPlansUnconfigured(t *testing.T) {
	h := NewHandler(plans.NewCatalog("", ""), fakeGateway{plans: map[string]*paystack.Plan{}}, nil)
	w := serve(h, http.MethodPost, "/admin/plans/check", h.CheckPlans)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unconfigured":2`)
}

func TestCheckPlansWithoutGateway(t *testing.T) {
	h := NewHandler(plans.NewCatalog("", ""), nil, nil)
	w := serve(h, http.MethodPost, "/admin/plans/check", h.CheckPlans)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	h = NewHandler(plans.NewCatalog("", ""), fakeGateway{}, nil)
	w = serve(h, http.MethodPost, "/admin/plans/check", h.CheckPlans)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCompare(t *testing.T) {
	p, _ := plans.NewCatalog("PLN_pro", "").Get(plans.Pro)

	assert.Equal(t, checkOK, compare(p, &paystack.Plan{Amount: 2000, Currency: "ghs"}).Result)

	got := compare(p, &paystack.Plan{Amount: 2500, Currency: "GHS"})
	assert.Equal(t, checkMismatch, got.Result)
	assert.Equal(t, "amount differs", got.Detail)

	got = compare(p, &paystack.Plan{Amount: 2000, Currency: "NGN"})
	assert.Equal(t, "currency differs", got.Detail)
}
