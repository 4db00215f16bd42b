package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLogOnly(t *testing.T) *Mailer {
	t.Helper()
	m, err := New(Config{SiteName: "Hub"}, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestBuild_SignInCode(t *testing.T) {
	e, err := newLogOnly(t).Build(TemplateSignInCode, map[string]string{"code": "123456", "expires_in": "10 minutes"})
	require.NoError(t, err)
	assert.Equal(t, "Your Hub sign-in code", e.Subject)
	assert.Contains(t, e.TextBody, "123456")
	assert.Contains(t, e.TextBody, "10 minutes")
	assert.Contains(t, e.HTMLBody, "123456")
}

func TestBuild_ImageRemoved(t *testing.T) {
	e, err := newLogOnly(t).Build(TemplateImageRemoved, map[string]string{
		"name": "Pat Lee", "company": "Acme", "participant": "Ann Smith", "kind": "owner",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme: document image removed", e.Subject)
	assert.True(t, strings.HasPrefix(e.TextBody, "Hello Pat Lee,"))
	assert.Contains(t, e.TextBody, "owner Ann Smith of Acme")
	assert.Contains(t, e.HTMLBody, "Hub")
}

func TestBuild_HTMLEscapesData(t *testing.T) {
	e, err := newLogOnly(t).Build(TemplateSubmitted, map[string]string{"company": "<b>Acme</b>"})
	require.NoError(t, err)
	assert.NotContains(t, e.HTMLBody, "<b>Acme</b>")
	assert.Contains(t, e.HTMLBody, "&lt;b&gt;Acme&lt;/b&gt;")
}

func TestSend_UnknownTemplate(t *testing.T) {
	err := newLogOnly(t).Send(context.Background(), "nope", "a@b.co", nil)
	assert.True(t, errors.Is(err, ErrUnknownTemplate))
}

func TestSend_LogOnlyDoesNotFail(t *testing.T) {
	err := newLogOnly(t).Send(context.Background(), TemplateSubmitted, "a@b.co", map[string]string{"company": "Acme"})
	assert.NoError(t, err)
}
