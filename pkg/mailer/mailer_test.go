package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youngmin0324/stock-news-email/pkg/domain"
)

func testDoc() domain.RenderedDocument {
	return domain.RenderedDocument{
		Subject:   "[주식 뉴스] 테스트",
		HTMLBody:  "<h2>본문</h2>",
		PlainBody: "본문",
	}
}

func TestSMTP_Send_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		user string
		pass string
	}{
		{name: "no user", user: "", pass: "secret"},
		{name: "no pass", user: "bot@example.com", pass: ""},
		{name: "neither", user: "", pass: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// port 1 would refuse instantly, but the credential check must
			// fail before any dial happens
			s := New("127.0.0.1", 1, tt.user, tt.pass)
			err := s.Send(context.Background(), "to@example.com", testDoc())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoCredentials)
		})
	}
}

func TestSMTP_Send_InvalidRecipient(t *testing.T) {
	s := New("127.0.0.1", 1, "bot@example.com", "secret")
	err := s.Send(context.Background(), "not-an-address", testDoc())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set recipient")
}

func TestSMTP_Send_UnreachableRelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := New("127.0.0.1", 1, "bot@example.com", "secret")
	err := s.Send(ctx, "to@example.com", testDoc())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send mail")
}
