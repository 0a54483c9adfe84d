package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender is the notification sink for the invitation flow. Delivery is
// best-effort: callers log failures and never roll back on a send error.
// Nil = no-op.
type Sender interface {
	SendWelcome(ctx context.Context, toEmail, firstName string) error
	SendInvite(ctx context.Context, toEmail, inviteLink, teamName, role, subject string) error
}

// BrevoClient sends transactional emails via the Brevo API.
// Env: BREVO_API_KEY, MAIL_FROM. Empty API key disables sending.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@bridgeai.dev"
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "BridgeAI"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@bridgeai.dev", Name: "BridgeAI Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendWelcome sends the welcome email after account creation.
func (c *BrevoClient) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	if c.APIKey == "" {
		return nil
	}
	if firstName == "" {
		firstName = "there"
	}
	content := welcomeContent(firstName)
	return c.send(ctx, toEmail, "Welcome to BridgeAI!", EmailLayout(content))
}

// SendInvite sends the invitation email. Subject is caller-provided (e.g.
// "You have been invited to join {team}" or "Reminder: Invitation to join {team}").
func (c *BrevoClient) SendInvite(ctx context.Context, toEmail, inviteLink, teamName, role, subject string) error {
	if c.APIKey == "" {
		return nil
	}
	content := invitationContent(inviteLink, teamName, role)
	return c.send(ctx, toEmail, subject, EmailLayout(content))
}

// welcomeContent is the body for the account-created email (inside layout).
func welcomeContent(userName string) string {
	dashboardURL := "https://bridgeai.dev/"
	return fmt.Sprintf(`
    <h1>Welcome to BridgeAI, %s!</h1>
    <p>Thank you for joining <strong>BridgeAI</strong>. Your account has been successfully created, and you can now create teams, invite collaborators, and start working on your projects.</p>
    <center>
      <a href="%s" class="bridge-button">Open Your Dashboard</a>
    </center>
    <p style="margin-top: 20px; font-size: 14px; color: #666;">
      If you did not sign up for this account, please contact our support team immediately.
    </p>
    <p>— The BridgeAI Team</p>
`, EscapeHTML(userName), dashboardURL)
}

// invitationContent is the body for the team invitation email.
func invitationContent(inviteLink, teamName, role string) string {
	return fmt.Sprintf(`
    <h1>You've Been Invited to Join %s</h1>
    <p>You have been invited to join the team <strong>%s</strong> on <strong>BridgeAI</strong> as a <strong>%s</strong>.</p>
    <p>Click the button below to accept your invitation and get started:</p>
    <center>
      <a href="%s" class="bridge-button">Accept Invitation</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      This invitation link will expire in 7 days. If you were not expecting this invitation, you can safely ignore this email.
    </p>
    <p>— The BridgeAI Team</p>
`, EscapeHTML(teamName), EscapeHTML(teamName), EscapeHTML(role), inviteLink)
}
