package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tickethub/internal/domain/users"
)

// Mailer sends the account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
	SendWelcome(ctx context.Context, to, name string) error
}

func generateVerificationToken() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// issueToken replaces the user's token of the given type and returns it.
func issueToken(db *gorm.DB, userID uint, kind string, ttl time.Duration) (string, error) {
	tok := users.VerificationToken{
		UserID:    userID,
		Token:     generateVerificationToken(),
		Type:      kind,
		ExpiresAt: time.Now().Add(ttl),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "created_at"}),
	}).Create(&tok).Error
	return tok.Token, err
}

func (h *Handler) sendVerification(ctx context.Context, user users.User) error {
	token, err := issueToken(h.DB, user.ID, users.TokenEmailVerification, 48*time.Hour)
	if err != nil {
		return err
	}
	if err := h.Mail.SendVerification(ctx, user.Email, token); err != nil {
		h.Log.Warn("verification email failed", zap.String("email", user.Email), zap.Error(err))
		return err
	}
	return nil
}
