package paymentattempt

import (
	"time"

	"github.com/alumnity/alumnity/internal/types"
)

// PaymentAttempt ties a user to a provider checkout session before the
// provider redirects back. It is the only trusted source for "who
// initiated this purchase"; identity fields in provider notification
// metadata are never trusted.
type PaymentAttempt struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	ProviderSessionID string    `db:"provider_session_id" json:"provider_session_id"`
	OrgName           string    `db:"org_name" json:"org_name"`
	OrgSlug           string    `db:"org_slug" json:"org_slug"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

func New(userID, orgName, orgSlug string) *PaymentAttempt {
	return &PaymentAttempt{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_ATTEMPT),
		UserID:    userID,
		OrgName:   orgName,
		OrgSlug:   orgSlug,
		CreatedAt: time.Now().UTC(),
	}
}
