package mocks

import (
	"context"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/mock"

	"bloodlink/internal/domain"
)

type EmailService struct {
	mock.Mock
}

func (m *EmailService) SendMail(ctx context.Context, to, subject, text, html string) error {
	args := m.Called(ctx, to, subject, text, html)
	return args.Error(0)
}

func (m *EmailService) SendNotificationEmail(ctx context.Context, toEmail, recipientName string, notif *domain.Notification) error {
	args := m.Called(ctx, toEmail, recipientName, notif)
	return args.Error(0)
}

func (m *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, fullName string, role domain.UserRole) error {
	args := m.Called(ctx, toEmail, fullName, role)
	return args.Error(0)
}

type Mailer struct {
	mock.Mock
}

func (m *Mailer) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}
