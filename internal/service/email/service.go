package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"bloodlink/internal/config"
	"bloodlink/internal/domain"
	"bloodlink/internal/pkg/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

type Service interface {
	SendMail(ctx context.Context, to, subject, text, html string) error
	SendNotificationEmail(ctx context.Context, toEmail, recipientName string, notif *domain.Notification) error
	SendWelcomeEmail(ctx context.Context, toEmail, fullName string, role domain.UserRole) error
}

// Mailer is the part of the resend client the service uses.
type Mailer interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type service struct {
	mailer    Mailer
	config    *config.Config
	log       *zap.Logger
	templates map[string]*template.Template
}

func NewService(cfg *config.Config, log *zap.Logger) (Service, error) {
	var mailer Mailer
	if cfg.ResendAPIKey != "" {
		mailer = resend.NewClient(cfg.ResendAPIKey).Emails
	}
	return NewServiceWithMailer(mailer, cfg, log)
}

// NewServiceWithMailer builds the service on top of an explicit mailer.
// A nil mailer only logs outgoing mail.
func NewServiceWithMailer(mailer Mailer, cfg *config.Config, log *zap.Logger) (Service, error) {
	templates := make(map[string]*template.Template)
	for _, name := range []string{"notification.html", "welcome.html"} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &service{
		mailer:    mailer,
		config:    cfg,
		log:       log.Named("email"),
		templates: templates,
	}, nil
}

func (s *service) SendMail(ctx context.Context, to, subject, text, html string) error {
	if s.mailer == nil {
		s.log.Debug("mail transport disabled", zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("BloodLink <%s>", s.config.FromEmail),
		To:      []string{to},
		Subject: subject,
		Text:    text,
		Html:    html,
	}

	_, err := s.mailer.Send(params)
	return err
}

func (s *service) render(name string, data any) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %s", name)
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}

func (s *service) SendNotificationEmail(ctx context.Context, toEmail, recipientName string, notif *domain.Notification) error {
	subject := i18n.Label(i18n.DefaultLocale, "notification", string(notif.Type))
	showDetails := notif.BloodType != domain.NotApplicable

	data := struct {
		Title       string
		Domain      string
		Name        string
		Message     string
		ShowDetails bool
		BloodType   string
		Units       int
		Urgency     string
		From        string
		Link        string
	}{
		Title:       subject,
		Domain:      s.config.Domain,
		Name:        recipientName,
		Message:     notif.Message,
		ShowDetails: showDetails,
		BloodType:   notif.BloodType,
		Urgency:     i18n.Label(i18n.DefaultLocale, "urgency", notif.Urgency),
		From:        fromLine(notif),
		Link:        fmt.Sprintf("https://%s/notifications", s.config.Domain),
	}
	if notif.Units != nil {
		data.Units = *notif.Units
	}

	html, err := s.render("notification.html", data)
	if err != nil {
		return err
	}

	text := notif.Message
	if showDetails {
		text = fmt.Sprintf("%s\nBlood type: %s\nUrgency: %s", notif.Message, notif.BloodType, data.Urgency)
	}
	return s.SendMail(ctx, toEmail, subject, text, html)
}

func (s *service) SendWelcomeEmail(ctx context.Context, toEmail, fullName string, role domain.UserRole) error {
	roleLabel := i18n.Label(i18n.DefaultLocale, "role", string(role))
	data := struct {
		Title  string
		Domain string
		Name   string
		Role   string
		Link   string
	}{
		Title:  "Welcome to BloodLink",
		Domain: s.config.Domain,
		Name:   fullName,
		Role:   strings.ToLower(roleLabel),
		Link:   fmt.Sprintf("https://%s/login", s.config.Domain),
	}

	html, err := s.render("welcome.html", data)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Hello %s, your %s account is ready.", fullName, data.Role)
	return s.SendMail(ctx, toEmail, "Welcome to BloodLink", text, html)
}

func fromLine(n *domain.Notification) string {
	if n.RequesterName == "" {
		return n.RequesterEmail
	}
	if n.RequesterMobile != nil && *n.RequesterMobile != "" {
		return fmt.Sprintf("%s (%s, %s)", n.RequesterName, n.RequesterEmail, *n.RequesterMobile)
	}
	return fmt.Sprintf("%s (%s)", n.RequesterName, n.RequesterEmail)
}
