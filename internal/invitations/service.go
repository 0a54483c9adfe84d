package invitations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"bridgeai-backend/internal/emails"
	"bridgeai-backend/internal/invitations/policies"
	"bridgeai-backend/internal/models"
	"bridgeai-backend/internal/pkg/constants"
	"bridgeai-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const inviteExpiry = 7 * 24 * time.Hour
const resendCooldown = 24 * time.Hour

// tokenBytes gives 256 bits of entropy per token (64 hex chars). Uniqueness
// is double-checked against the store and backed by the unique index.
const tokenBytes = 32

// Service is the invitation lifecycle engine. It owns issuance, the status
// state machine, and the atomic accept transition. Concurrency control is a
// conditional UPDATE on the stored status (single winner per token), never
// in-process locking: callers may run in independent processes.
type Service struct {
	DB          *gorm.DB
	Emails      emails.Sender // nil = no delivery
	FrontendURL string
	Now         func() time.Time // nil = time.Now
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// storeErr classifies an unexpected store failure as transient. Atomicity of
// the underlying transaction guarantees no partial write happened.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// InviteLink builds the redemption link. The token is the sole capability;
// the link carries no other authorization.
func (s *Service) InviteLink(token string) string {
	return s.FrontendURL + "/invite/accept?token=" + token
}

// recordExpiry persists the expired status for stale pending rows matching
// the condition. Expiration is discovered lazily but recorded eagerly on
// first observation; the status guard makes this safe to race with Accept.
func (s *Service) recordExpiry(ctx context.Context, cond string, args ...interface{}) error {
	res := s.DB.WithContext(ctx).Model(&models.Invitation{}).
		Where(cond, args...).
		Where("status = ? AND expires_at <= ?", constants.InviteStatusPending, s.now()).
		Update("status", constants.InviteStatusExpired)
	return res.Error
}

// generateToken draws a fresh high-entropy token and verifies it has never
// been used before, retrying on the astronomically unlikely collision.
func (s *Service) generateToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		b := make([]byte, tokenBytes)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		token := hex.EncodeToString(b)
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Invitation{}).
			Unscoped().
			Where("invite_token = ?", token).
			Count(&count).Error; err != nil {
			return "", storeErr(err)
		}
		if count == 0 {
			return token, nil
		}
	}
	return "", ErrTokenGeneration
}

type IssueInput struct {
	TeamID      uuid.UUID
	Email       string
	Role        string
	ActorUserID uuid.UUID
	ActorEmail  string
}

type IssueResult struct {
	Invitation *models.Invitation `json:"invitation"`
	InviteLink string             `json:"invite_link"`
}

// Issue creates a pending invitation and emits the invite email best-effort.
// Conflicts (duplicate pending invite, recipient already a member) come back
// as policy errors; a stale pending invite whose expiry has passed does not
// block reissue because the observed expiry is recorded first.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	email := validation.NormalizeEmail(in.Email)
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !constants.IsValidRole(in.Role) {
		return nil, ErrInvalidRole
	}

	if err := s.recordExpiry(ctx, "team_id = ? AND email = ?", in.TeamID, email); err != nil {
		return nil, storeErr(err)
	}
	if err := policies.ValidateInviteCreation(s.DB.WithContext(ctx), in.TeamID, email, in.ActorEmail); err != nil {
		return nil, err
	}

	token, err := s.generateToken(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &models.Invitation{
		TeamID:      in.TeamID,
		Email:       email,
		Role:        in.Role,
		InviteToken: token,
		Status:      constants.InviteStatusPending,
		InvitedBy:   in.ActorUserID,
		ExpiresAt:   now.Add(inviteExpiry),
	}
	if err := s.DB.WithContext(ctx).Create(inv).Error; err != nil {
		return nil, storeErr(err)
	}

	link := s.InviteLink(token)
	s.notifyInvite(ctx, inv, link, false)

	return &IssueResult{Invitation: inv, InviteLink: link}, nil
}

// notifyInvite emits the invite email. Delivery is best-effort: a sink
// failure is logged and never rolls back the invitation.
func (s *Service) notifyInvite(ctx context.Context, inv *models.Invitation, link string, reminder bool) {
	if s.Emails == nil {
		return
	}
	teamName := s.teamName(ctx, inv.TeamID)
	subject := fmt.Sprintf("You have been invited to join %s", teamName)
	if reminder {
		subject = fmt.Sprintf("Reminder: Invitation to join %s", teamName)
	}
	if err := s.Emails.SendInvite(ctx, inv.Email, link, teamName, inv.Role, subject); err != nil {
		log.Warn().Err(err).
			Str("invite_id", inv.InviteID.String()).
			Str("email", inv.Email).
			Msg("invite email delivery failed")
	}
}

func (s *Service) teamName(ctx context.Context, teamID uuid.UUID) string {
	var team models.Team
	if err := s.DB.WithContext(ctx).Where("team_id = ?", teamID).First(&team).Error; err != nil {
		return "a team"
	}
	return team.Name
}

// PublicView is what a token holder may see. The token itself is never
// echoed back.
type PublicView struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TeamID    uuid.UUID `json:"team_id"`
	TeamName  string    `json:"team_name"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    string    `json:"status"`
}

// View looks up an invitation by token. Unknown token is NotFound; an
// expired one is reported with an explicit expired status, not an error, so
// the caller can render "too late" distinctly from "never existed".
func (s *Service) View(ctx context.Context, token string) (*PublicView, error) {
	var inv models.Invitation
	if err := s.DB.WithContext(ctx).Where("invite_token = ?", token).First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvitationNotFound
		}
		return nil, storeErr(err)
	}

	now := s.now()
	eff := EffectiveStatus(&inv, now)
	if eff == constants.InviteStatusExpired && inv.Status == constants.InviteStatusPending {
		if err := s.recordExpiry(ctx, "invite_id = ?", inv.InviteID); err != nil {
			return nil, storeErr(err)
		}
	}

	view := &PublicView{
		Email:     inv.Email,
		Role:      inv.Role,
		TeamID:    inv.TeamID,
		TeamName:  s.teamName(ctx, inv.TeamID),
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
		Status:    eff,
	}
	var inviter models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", inv.InvitedBy).First(&inviter).Error; err == nil {
		view.InvitedBy = inviter.Fullname
	}
	return view, nil
}

type AcceptInput struct {
	Token  string
	UserID uuid.UUID
}

type AcceptResult struct {
	TeamID   uuid.UUID `json:"team_id"`
	TeamName string    `json:"team_name"`
	Role     string    `json:"role"`
}

// Accept redeems an invitation for the authenticated user. The status check
// and the pending->accepted transition run as one conditional UPDATE inside
// the same transaction as the membership upsert, so of two concurrent
// accepts exactly one wins and the other observes AlreadyUsed.
//
// A recipient who already joined through another path gets AlreadyTeamMember,
// but the invitation is still marked accepted: its goal is satisfied and the
// token must not stay redeemable.
func (s *Service) Accept(ctx context.Context, in AcceptInput) (*AcceptResult, error) {
	var inv models.Invitation
	if err := s.DB.WithContext(ctx).Where("invite_token = ?", in.Token).First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvitationNotFound
		}
		return nil, storeErr(err)
	}

	now := s.now()
	switch EffectiveStatus(&inv, now) {
	case constants.InviteStatusAccepted:
		return nil, ErrInviteAlreadyUsed
	case constants.InviteStatusCanceled:
		return nil, ErrInviteCanceled
	case constants.InviteStatusExpired:
		if inv.Status == constants.InviteStatusPending {
			if err := s.recordExpiry(ctx, "invite_id = ?", inv.InviteID); err != nil {
				return nil, storeErr(err)
			}
		}
		return nil, ErrInviteExpired
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", in.UserID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	// Identity check before any state change: a mismatch leaves the
	// invitation pending and retriable by the right account.
	if validation.NormalizeEmail(user.Email) != validation.NormalizeEmail(inv.Email) {
		return nil, ErrEmailMismatch
	}

	var existing models.TeamMember
	memberErr := s.DB.WithContext(ctx).
		Where("team_id = ? AND user_id = ? AND is_active = ?", inv.TeamID, in.UserID, true).
		First(&existing).Error
	if memberErr == nil {
		// Joined through another path already: consume the token so it
		// cannot be replayed, then report. Losing this CAS means a
		// concurrent call resolved the invitation first, so report the
		// stored terminal state instead.
		res := s.DB.WithContext(ctx).Model(&models.Invitation{}).
			Where("invite_id = ? AND status = ?", inv.InviteID, constants.InviteStatusPending).
			Update("status", constants.InviteStatusAccepted)
		if res.Error != nil {
			return nil, storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			var cur models.Invitation
			if err := s.DB.WithContext(ctx).Where("invite_id = ?", inv.InviteID).First(&cur).Error; err != nil {
				return nil, storeErr(err)
			}
			switch cur.Status {
			case constants.InviteStatusCanceled:
				return nil, ErrInviteCanceled
			case constants.InviteStatusExpired:
				return nil, ErrInviteExpired
			default:
				return nil, ErrInviteAlreadyUsed
			}
		}
		return nil, policies.ErrAlreadyTeamMember
	}
	if memberErr != gorm.ErrRecordNotFound {
		return nil, storeErr(memberErr)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The "still pending" and "not expired" guards both live in the
		// conditional UPDATE, so an invitation whose deadline passes after
		// the status read above still cannot be accepted.
		res := tx.Model(&models.Invitation{}).
			Where("invite_id = ? AND status = ? AND expires_at > ?",
				inv.InviteID, constants.InviteStatusPending, now).
			Update("status", constants.InviteStatusAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race. Re-read to classify the terminal state the
			// winner left behind.
			var cur models.Invitation
			if err := tx.Where("invite_id = ?", inv.InviteID).First(&cur).Error; err != nil {
				return err
			}
			switch cur.Status {
			case constants.InviteStatusCanceled:
				return ErrInviteCanceled
			case constants.InviteStatusExpired:
				return ErrInviteExpired
			case constants.InviteStatusPending:
				// Still pending but past the deadline: the expires_at guard
				// rejected it. Record the observed expiry on the way out.
				if err := tx.Model(&models.Invitation{}).
					Where("invite_id = ? AND status = ?", inv.InviteID, constants.InviteStatusPending).
					Update("status", constants.InviteStatusExpired).Error; err != nil {
					return err
				}
				return ErrInviteExpired
			default:
				return ErrInviteAlreadyUsed
			}
		}

		var member models.TeamMember
		err := tx.Where("team_id = ? AND user_id = ?", inv.TeamID, in.UserID).First(&member).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(&models.TeamMember{
				TeamID:   inv.TeamID,
				UserID:   in.UserID,
				Role:     inv.Role,
				IsActive: true,
				JoinedAt: now,
			}).Error
		}
		if err != nil {
			return err
		}
		// Inactive row from an earlier stint on the team: reactivate with
		// the invited role.
		return tx.Model(&member).Updates(map[string]interface{}{
			"role":      inv.Role,
			"is_active": true,
			"joined_at": now,
		}).Error
	})
	if err != nil {
		switch err {
		case ErrInviteAlreadyUsed, ErrInviteCanceled, ErrInviteExpired:
			return nil, err
		default:
			return nil, storeErr(err)
		}
	}

	return &AcceptResult{
		TeamID:   inv.TeamID,
		TeamName: s.teamName(ctx, inv.TeamID),
		Role:     inv.Role,
	}, nil
}

// Cancel transitions a pending invitation to canceled. It is idempotent:
// canceling an already-resolved invitation (or losing the race to a
// concurrent Accept) returns the current record, not an error.
func (s *Service) Cancel(ctx context.Context, teamID, inviteID uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	if err := s.DB.WithContext(ctx).
		Where("invite_id = ? AND team_id = ?", inviteID, teamID).
		First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvitationNotFound
		}
		return nil, storeErr(err)
	}

	now := s.now()
	eff := EffectiveStatus(&inv, now)
	if eff != constants.InviteStatusPending {
		if eff == constants.InviteStatusExpired && inv.Status == constants.InviteStatusPending {
			if err := s.recordExpiry(ctx, "invite_id = ?", inv.InviteID); err != nil {
				return nil, storeErr(err)
			}
			inv.Status = constants.InviteStatusExpired
		}
		return &inv, nil
	}

	res := s.DB.WithContext(ctx).Model(&models.Invitation{}).
		Where("invite_id = ? AND status = ?", inv.InviteID, constants.InviteStatusPending).
		Update("status", constants.InviteStatusCanceled)
	if res.Error != nil {
		return nil, storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// A concurrent Accept (or expiry write) won; cancel-after-resolution
		// is still Ok.
		var cur models.Invitation
		if err := s.DB.WithContext(ctx).Where("invite_id = ?", inv.InviteID).First(&cur).Error; err != nil {
			return nil, storeErr(err)
		}
		return &cur, nil
	}
	inv.Status = constants.InviteStatusCanceled
	return &inv, nil
}

// ListForTeam returns the team's invitations with derived statuses, newest
// first. Expired entries are filtered out unless includeExpired is set;
// accepted and canceled stay visible as the audit trail. This is the
// owner/admin-facing listing, the only place the token is included.
func (s *Service) ListForTeam(ctx context.Context, teamID uuid.UUID, includeExpired bool) ([]models.Invitation, error) {
	// Record observed expiry for the whole team in one conditional write,
	// then read back stored statuses that are now accurate.
	if err := s.recordExpiry(ctx, "team_id = ?", teamID); err != nil {
		return nil, storeErr(err)
	}

	q := s.DB.WithContext(ctx).Where("team_id = ?", teamID)
	if !includeExpired {
		q = q.Where("status <> ?", constants.InviteStatusExpired)
	}
	var invitations []models.Invitation
	if err := q.Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, storeErr(err)
	}
	return invitations, nil
}

type ResendInput struct {
	TeamID uuid.UUID
	Email  string
}

// Resend re-emits the invite email for an effectively-pending invitation,
// at most once per day. The token is immutable, so the original link is
// re-sent rather than rotated.
func (s *Service) Resend(ctx context.Context, in ResendInput) (*IssueResult, error) {
	email := validation.NormalizeEmail(in.Email)

	if err := s.recordExpiry(ctx, "team_id = ? AND email = ?", in.TeamID, email); err != nil {
		return nil, storeErr(err)
	}

	var inv models.Invitation
	if err := s.DB.WithContext(ctx).
		Where("team_id = ? AND email = ? AND status = ?", in.TeamID, email, constants.InviteStatusPending).
		First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvitationNotFound
		}
		return nil, storeErr(err)
	}

	if s.now().Sub(inv.UpdatedAt) < resendCooldown {
		return nil, ErrResendTooSoon
	}

	if err := s.DB.WithContext(ctx).Model(&inv).Update("updated_at", s.now()).Error; err != nil {
		return nil, storeErr(err)
	}

	link := s.InviteLink(inv.InviteToken)
	s.notifyInvite(ctx, &inv, link, true)

	return &IssueResult{Invitation: &inv, InviteLink: link}, nil
}
