package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	sent []*ses.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, in)
	return &ses.SendEmailOutput{}, nil
}

func TestSendPasswordReset(t *testing.T) {
	fake := &fakeSES{}
	svc := newEmailService(fake, "noreply@macchain.app", "MacChain", "https://macchain.app/")

	require.NoError(t, svc.SendPasswordReset(context.Background(), "reader@example.com", "tok123"))
	require.Len(t, fake.sent, 1)

	in := fake.sent[0]
	assert.Equal(t, "MacChain <noreply@macchain.app>", aws.ToString(in.Source))
	assert.Equal(t, []string{"reader@example.com"}, in.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "https://macchain.app/reset-password?token=tok123")
}

func TestSendNotificationWrapsErrors(t *testing.T) {
	svc := newEmailService(&fakeSES{err: errors.New("throttled")}, "a@b.c", "", "https://x")
	err := svc.SendNotification(context.Background(), "r@example.com", "성경 읽기 시간입니다!", "오늘의 읽기 계획을 확인해보세요.")
	assert.ErrorContains(t, err, "throttled")
}
