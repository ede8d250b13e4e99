package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainbilling "tickethub/internal/domain/billing"
	"tickethub/internal/domain/organizations"
)

// Repository provides the DB operations used by the billing service.
type Repository interface {
	GetOrganization(ctx context.Context, id string) (*organizations.Organization, error)
	FindOrganizationByCustomerCode(ctx context.Context, code string) (*organizations.Organization, error)
	FindOrganizationByEmail(ctx context.Context, email string) (*organizations.Organization, error)
	FindOrganizationByPendingReference(ctx context.Context, ref string) (*organizations.Organization, error)
	// UpdateSubscription runs mutate on the locked row and saves the result.
	UpdateSubscription(ctx context.Context, orgID string, mutate func(*organizations.Subscription)) (*organizations.Organization, error)
	RecordPayment(ctx context.Context, p *domainbilling.Payment) error
	ListPayments(ctx context.Context, orgID string, limit int) ([]domainbilling.Payment, error)
	CreateWebhookEventIfNotExists(ctx context.Context, event *domainbilling.WebhookEvent) (bool, *domainbilling.WebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) findOrg(ctx context.Context, query string, arg interface{}) (*organizations.Organization, error) {
	var org organizations.Organization
	err := r.db.WithContext(ctx).Where(query, arg).Order("created_at asc").Take(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) GetOrganization(ctx context.Context, id string) (*organizations.Organization, error) {
	return r.findOrg(ctx, "id = ?", id)
}

func (r *gormRepository) FindOrganizationByCustomerCode(ctx context.Context, code string) (*organizations.Organization, error) {
	return r.findOrg(ctx, "subscription_paystack_customer_code = ?", code)
}

func (r *gormRepository) FindOrganizationByEmail(ctx context.Context, email string) (*organizations.Organization, error) {
	return r.findOrg(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *gormRepository) FindOrganizationByPendingReference(ctx context.Context, ref string) (*organizations.Organization, error) {
	return r.findOrg(ctx, "subscription_pending_reference = ?", ref)
}

func (r *gormRepository) UpdateSubscription(ctx context.Context, orgID string, mutate func(*organizations.Subscription)) (*organizations.Organization, error) {
	var org organizations.Organization
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orgID).Take(&org).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrganizationNotFound
		}
		if err != nil {
			return err
		}
		mutate(&org.Subscription)
		return tx.Save(&org).Error
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) RecordPayment(ctx context.Context, p *domainbilling.Payment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoNothing: true,
	}).Create(p).Error
}

func (r *gormRepository) ListPayments(ctx context.Context, orgID string, limit int) ([]domainbilling.Payment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []domainbilling.Payment
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *domainbilling.WebhookEvent) (bool, *domainbilling.WebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored domainbilling.WebhookEvent
	if err := r.db.WithContext(ctx).Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&domainbilling.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
