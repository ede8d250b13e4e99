package paystack

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type CustomerRequest struct {
	Email     string            `json:"email"`
	FirstName string            `json:"first_name,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Customer struct {
	ID           int64  `json:"id"`
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      string            `json:"amount"` // minor units, as a string
	Currency    string            `json:"currency,omitempty"`
	Plan        string            `json:"plan,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type Authorization struct {
	AuthorizationCode string `json:"authorization_code"`
	Reusable          bool   `json:"reusable"`
}

type Transaction struct {
	ID            int64           `json:"id"`
	Status        string          `json:"status"`
	Reference     string          `json:"reference"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	PaidAt        string          `json:"paid_at"`
	GatewayResp   string          `json:"gateway_response"`
	Customer      Customer        `json:"customer"`
	Authorization Authorization   `json:"authorization"`
	Plan          json.RawMessage `json:"plan"`
	Metadata      json.RawMessage `json:"metadata"`
}

func (t Transaction) PlanCode() string      { return PlanCode(t.Plan) }
func (t Transaction) MetadataMap() Metadata { return ParseMetadata(t.Metadata) }

type PlanRef struct {
	PlanCode string `json:"plan_code"`
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Amount   int64  `json:"amount"`
}

type Plan struct {
	PlanCode string `json:"plan_code"`
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Subscription struct {
	SubscriptionCode string   `json:"subscription_code"`
	EmailToken       string   `json:"email_token"`
	Status           string   `json:"status"`
	NextPaymentDate  string   `json:"next_payment_date"`
	Plan             PlanRef  `json:"plan"`
	Customer         Customer `json:"customer"`
}

func (s Subscription) NextPayment() *time.Time { return ParseTime(s.NextPaymentDate) }

// PlanCode extracts a plan code from the "plan" field, which Paystack sends
// as null, an empty object, a bare code string, or a plan object depending
// on the endpoint.
func PlanCode(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return strings.TrimSpace(code)
	}
	var ref PlanRef
	if err := json.Unmarshal(raw, &ref); err == nil {
		return strings.TrimSpace(ref.PlanCode)
	}
	return ""
}

// Metadata is a flattened view of transaction metadata.
type Metadata map[string]string

func (m Metadata) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

// ParseMetadata accepts metadata as a JSON object or as a string holding a
// JSON object. Anything else yields an empty map.
func ParseMetadata(raw json.RawMessage) Metadata {
	out := Metadata{}
	if len(raw) == 0 {
		return out
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return out
		}
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return out
		}
	}
	for k, v := range obj {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		case map[string]interface{}, []interface{}:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

// ParseTime reads the ISO timestamps Paystack uses. Empty or invalid
// values return nil.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
