package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/models"
	"github.com/axops/axops-core/pkg/logger"
)

// IntegrationsService delivers notifications to the configured outbound
// channels: Slack webhook, MS Teams webhook and SMTP email. A disabled
// channel is a silent no-op.
type IntegrationsService struct {
	config config.IntegrationsConfig
	client *http.Client
	logger logger.Logger
}

func NewIntegrationsService(cfg config.IntegrationsConfig, logger logger.Logger) *IntegrationsService {
	return &IntegrationsService{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// SendSlackNotification posts the notification to the Slack webhook.
func (s *IntegrationsService) SendSlackNotification(ctx context.Context, notification *models.Notification) error {
	if !s.config.Slack.Enabled {
		return nil
	}

	payload := map[string]interface{}{
		"channel": s.config.Slack.Channel,
		"attachments": []map[string]interface{}{
			{
				"color":     slackColor(notification.Severity),
				"title":     notification.Title,
				"text":      notification.Message,
				"timestamp": notification.Timestamp.Unix(),
				"fields": []map[string]interface{}{
					{"title": "Component", "value": notification.Component, "short": true},
					{"title": "Severity", "value": string(notification.Severity), "short": true},
				},
			},
		},
	}

	if err := s.postJSON(ctx, s.config.Slack.WebhookURL, payload); err != nil {
		return fmt.Errorf("slack notification: %w", err)
	}
	s.logger.Info("Slack notification sent", "kind", notification.Kind, "component", notification.Component)
	return nil
}

// SendMSTeamsNotification posts a MessageCard to the Teams webhook.
func (s *IntegrationsService) SendMSTeamsNotification(ctx context.Context, notification *models.Notification) error {
	if !s.config.MSTeams.Enabled {
		return nil
	}

	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"summary":    notification.Title,
		"themeColor": teamsColor(notification.Severity),
		"sections": []map[string]interface{}{
			{
				"activityTitle":    notification.Title,
				"activitySubtitle": notification.Component,
				"text":             notification.Message,
				"facts": []map[string]interface{}{
					{"name": "Severity", "value": string(notification.Severity)},
					{"name": "Time", "value": notification.Timestamp.Format(time.RFC3339)},
					{"name": "Kind", "value": notification.Kind},
				},
			},
		},
	}

	if err := s.postJSON(ctx, s.config.MSTeams.WebhookURL, payload); err != nil {
		return fmt.Errorf("ms teams notification: %w", err)
	}
	s.logger.Info("MS Teams notification sent", "kind", notification.Kind, "component", notification.Component)
	return nil
}

func (s *IntegrationsService) postJSON(ctx context.Context, url string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func slackColor(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "danger"
	case models.SeverityWarning:
		return "warning"
	case models.SeverityInfo:
		return "good"
	default:
		return "#439FE0"
	}
}

func teamsColor(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "FF0000"
	case models.SeverityWarning:
		return "FFA500"
	case models.SeverityInfo:
		return "00FF00"
	default:
		return "0078D4"
	}
}

// SendEmailNotification sends the notification over SMTP with optional auth.
func (s *IntegrationsService) SendEmailNotification(ctx context.Context, notification *models.Notification) error {
	if !s.config.Email.Enabled {
		return nil
	}
	if s.config.Email.SMTPHost == "" || s.config.Email.SMTPPort == 0 || s.config.Email.FromAddress == "" {
		return fmt.Errorf("email integration not properly configured")
	}

	recipients := s.config.Email.ToAddresses
	if len(recipients) == 0 {
		recipients = []string{s.config.Email.FromAddress}
	}

	addr := fmt.Sprintf("%s:%d", s.config.Email.SMTPHost, s.config.Email.SMTPPort)

	safeFrom, err := sanitizeEmailHeader("from address", s.config.Email.FromAddress)
	if err != nil {
		return err
	}
	if safeFrom == "" {
		return fmt.Errorf("from address cannot be empty")
	}

	safeRecipients := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		safeRecipient, err := sanitizeEmailHeader("recipient", recipient)
		if err != nil {
			return err
		}
		if safeRecipient == "" {
			return fmt.Errorf("recipient cannot be empty")
		}
		safeRecipients = append(safeRecipients, safeRecipient)
	}

	safeTitle, err := sanitizeEmailHeader("title", notification.Title)
	if err != nil {
		return err
	}
	safeComponent, err := sanitizeEmailHeader("component", notification.Component)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("[AxOps] %s - %s", strings.ToUpper(string(notification.Severity)), safeTitle)
	body := fmt.Sprintf(
		"Component: %s\nSeverity: %s\nTime: %s\nKind: %s\n\n%s",
		safeComponent,
		notification.Severity,
		notification.Timestamp.Format(time.RFC3339),
		notification.Kind,
		notification.Message,
	)

	var msgBuilder strings.Builder
	msgBuilder.WriteString("From: ")
	msgBuilder.WriteString(safeFrom)
	msgBuilder.WriteString("\r\n")
	msgBuilder.WriteString("To: ")
	msgBuilder.WriteString(strings.Join(safeRecipients, ","))
	msgBuilder.WriteString("\r\n")
	msgBuilder.WriteString("Subject: ")
	msgBuilder.WriteString(subject)
	msgBuilder.WriteString("\r\n\r\n")
	msgBuilder.WriteString(body)

	msg := []byte(msgBuilder.String())

	var auth smtp.Auth
	if s.config.Email.Username != "" && s.config.Email.Password != "" {
		auth = smtp.PlainAuth(
			"",
			s.config.Email.Username,
			s.config.Email.Password,
			s.config.Email.SMTPHost,
		)
	}

	if err := smtp.SendMail(addr, auth, safeFrom, safeRecipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("Email notification sent",
		"kind", notification.Kind,
		"component", notification.Component,
		"to", safeRecipients,
	)
	return nil
}

// sanitizeEmailHeader rejects header values that could break out of email headers.
func sanitizeEmailHeader(fieldName, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if strings.ContainsAny(trimmed, "\r\n") {
		return "", fmt.Errorf("%s contains invalid newline characters", fieldName)
	}
	return trimmed, nil
}
