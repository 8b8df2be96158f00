package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/macchain/backend/internal/telemetry"
)

// Sender delivers the transactional mail MacChain sends
type Sender interface {
	SendPasswordReset(ctx context.Context, toEmail, resetToken string) error
	SendNotification(ctx context.Context, toEmail, subject, body string) error
}

// sesAPI is the subset of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailService sends email through AWS SES
type EmailService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	baseURL   string
}

var _ Sender = (*EmailService)(nil)

// NewEmailService creates a new email service using AWS SES
func NewEmailService(ctx context.Context, region, fromEmail, fromName, baseURL string) (*EmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newEmailService(ses.NewFromConfig(cfg), fromEmail, fromName, baseURL), nil
}

func newEmailService(client sesAPI, fromEmail, fromName, baseURL string) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

// SendPasswordReset mails a link to the web app's reset page, which
// posts the token to /api/v1/auth/reset-password/confirm.
func (e *EmailService) SendPasswordReset(ctx context.Context, toEmail, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", e.baseURL, resetToken)

	subject := "MacChain 비밀번호 재설정"
	textBody := fmt.Sprintf(`MacChain 비밀번호 재설정

비밀번호 재설정을 요청하셨습니다. 아래 링크는 1시간 동안 유효합니다.

%s

요청하지 않으셨다면 이 메일을 무시하셔도 됩니다.
`, resetURL)
	htmlBody := wrapHTML("비밀번호 재설정",
		fmt.Sprintf(`<p>비밀번호 재설정을 요청하셨습니다. 아래 링크는 1시간 동안 유효합니다.</p>
<p><a href="%[1]s" class="button">비밀번호 재설정</a></p>
<p style="word-break: break-all; color: #666;">%[1]s</p>
<p>요청하지 않으셨다면 이 메일을 무시하셔도 됩니다.</p>`, html.EscapeString(resetURL)))

	return e.send(ctx, "password_reset", toEmail, subject, textBody, htmlBody)
}

// SendNotification mails a notification's title and message
func (e *EmailService) SendNotification(ctx context.Context, toEmail, subject, body string) error {
	text := body + "\n\n" + e.baseURL + "\n"
	htmlBody := wrapHTML(html.EscapeString(subject),
		fmt.Sprintf(`<p>%s</p><p><a href="%s" class="button">MacChain 열기</a></p>`,
			html.EscapeString(body), html.EscapeString(e.baseURL)))
	return e.send(ctx, "notification", toEmail, subject, text, htmlBody)
}

func (e *EmailService) send(ctx context.Context, template, toEmail, subject, textBody, htmlBody string) error {
	ctx, span := telemetry.TraceSESCall(ctx, template)
	defer span.End()

	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	_, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	telemetry.RecordServiceSuccess(span, 1)
	return nil
}

func wrapHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.button { display: inline-block; padding: 12px 24px; background-color: #4f46e5; color: white; text-decoration: none; border-radius: 6px; }
</style>
</head>
<body>
<div class="container">
<h1>%s</h1>
%s
<hr>
<p style="color: #999; font-size: 12px;">MacChain 자동 발송 메일입니다.</p>
</div>
</body>
</html>`, title, content)
}
