package models

import "time"

// InvitationRole is the role an invitation token admits. It is a closed
// set: the registration dispatcher switches over it exhaustively.
type InvitationRole string

const (
	InviteCaptain InvitationRole = "captain"
	InvitePlayer  InvitationRole = "player"
	InviteReferee InvitationRole = "referee"
)

func (r InvitationRole) Valid() bool {
	switch r {
	case InviteCaptain, InvitePlayer, InviteReferee:
		return true
	}
	return false
}

type Invitation struct {
	ID         int            `json:"id"`
	Token      string         `json:"-"`
	TargetRole InvitationRole `json:"target_role"`
	TeamID     *int           `json:"team_id,omitempty"`
	IssuedBy   int            `json:"issued_by"`
	IssuedAt   time.Time      `json:"issued_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
	Consumed   bool           `json:"consumed"`
	ConsumedBy *int           `json:"consumed_by,omitempty"`
}

func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// QRPayload shapes the invitation for QR encoding. The captain UI
// renders the marshaled form as a code; it is the only place the raw
// token leaves the server.
func (i *Invitation) QRPayload() QRPayload {
	return QRPayload{
		Type:   i.TargetRole,
		TeamID: i.TeamID,
		Token:  i.Token,
	}
}

// QRPayload is the JSON a scanned code decodes to. The token field is
// the only thing trusted: role and team are cross-checked against the
// stored invitation, never taken at face value.
type QRPayload struct {
	Type   InvitationRole `json:"type"`
	TeamID *int           `json:"team_id,omitempty"`
	Token  string         `json:"token"`
}

// TokenPreview is what a scanner may show before committing to
// registration. Producing it has no side effect on the token.
type TokenPreview struct {
	TargetRole InvitationRole `json:"target_role"`
	TeamID     *int           `json:"team_id,omitempty"`
	TeamName   string         `json:"team_name,omitempty"`
	ExpiresAt  time.Time      `json:"expires_at"`
}
