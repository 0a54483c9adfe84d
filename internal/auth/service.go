package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"bridgeai-backend/internal/models"
	"bridgeai-backend/internal/pkg/constants"
	"bridgeai-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SignupInput for registration request body.
type SignupInput struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionUserShape is the object stored in session and returned by /me.
type SessionUserShape struct {
	UserID   string `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// UserFinder abstracts login lookup (production GORM or test doubles).
type UserFinder interface {
	FindByEmailAndPassword(email, password string) (*models.User, error)
}

// GormUserFinder implements UserFinder using GORM and bcrypt.
type GormUserFinder struct{ DB *gorm.DB }

func (g *GormUserFinder) FindByEmailAndPassword(email, password string) (*models.User, error) {
	return LoginUser(g.DB, LoginInput{Email: email, Password: password})
}

// RegisterUser creates an account. Signup is open; any team access comes
// from invitations redeemed afterwards. Pending invitations addressed to the
// new account's email surface as in-app notifications so the user finds them
// without digging through their inbox.
func RegisterUser(ctx context.Context, db *gorm.DB, input SignupInput) (*models.User, error) {
	email := validation.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(input.Password) {
		return nil, ErrWeakPassword
	}
	if !validation.IsValidFullname(input.Fullname) {
		return nil, ErrFullnameRequired
	}

	var existing models.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Fullname:     input.Fullname,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}

	notifyPendingInvites(ctx, db, user)
	return user, nil
}

// notifyPendingInvites creates one notification per live invitation waiting
// for this email. Best-effort: signup never fails because of it.
func notifyPendingInvites(ctx context.Context, db *gorm.DB, user *models.User) {
	var invites []models.Invitation
	err := db.WithContext(ctx).
		Where("email = ? AND status = ?", user.Email, constants.InviteStatusPending).
		Find(&invites).Error
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.UserID.String()).
			Msg("pending invite lookup failed at signup")
		return
	}
	for _, inv := range invites {
		var team models.Team
		teamName := "a team"
		if err := db.WithContext(ctx).Where("team_id = ?", inv.TeamID).First(&team).Error; err == nil {
			teamName = team.Name
		}
		body, _ := json.Marshal(map[string]string{
			"team_id":   inv.TeamID.String(),
			"team_name": teamName,
			"role":      inv.Role,
		})
		n := &models.Notification{
			UserID:      user.UserID,
			Type:        models.NotificationTeamInvitation,
			ReferenceID: inv.InviteID,
			Title:       "Pending team invitation",
			Message:     fmt.Sprintf("You have been invited to join %s as %s", teamName, inv.Role),
			Payload:     datatypes.JSON(body),
		}
		if err := db.WithContext(ctx).Create(n).Error; err != nil {
			log.Warn().Err(err).Str("invite_id", inv.InviteID.String()).
				Msg("invite notification create failed")
		}
	}
}

// LoginUser finds user by email and verifies password. Returns user for session or error.
func LoginUser(db *gorm.DB, input LoginInput) (*models.User, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	var u models.User
	if err := db.Where("email = ?", validation.NormalizeEmail(input.Email)).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidEmail
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}
	return &u, nil
}

// VerifyUser validates session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return &SessionUserShape{
		UserID:   userID,
		Fullname: str(m["fullname"]),
		Email:    str(m["email"]),
	}, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
