package organizations

import (
	"tickethub/internal/domain/organizations"
	"tickethub/internal/notify"
)

func inviteMessage(org organizations.Organization, inv organizations.Invitation, inviter string) notify.Invite {
	return notify.Invite{
		To:          inv.Email,
		OrgName:     org.Name,
		InviterName: inviter,
		Role:        inv.Role,
		Token:       inv.Token,
		ExpiresAt:   inv.ExpiresAt,
	}
}
