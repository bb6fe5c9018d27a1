package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_USERNAME", "operator")
	t.Setenv("APP_PASSWORD", "hunter2hunter2")
	t.Setenv("INVOICE_SECRET", "invoice-secret-value")
	t.Setenv("PAYMENT_SECRET", "payment-secret-value")
	t.Setenv("SESSION_SECRET", "session-secret-value")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultBaseURL, cfg.PublicBaseURL)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, DefaultReceiptTTL, cfg.ReceiptTTL)
	assert.False(t, cfg.MailEnabled())
}

func TestLoad_MissingSecrets(t *testing.T) {
	cases := []string{
		"APP_USERNAME",
		"APP_PASSWORD",
		"INVOICE_SECRET",
		"PAYMENT_SECRET",
		"SESSION_SECRET",
	}

	for _, missing := range cases {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(missing, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestValidate_ShortSessionSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SECRET", "tooshort")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoad_MailConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_HOST", "smtp.example.com")
	t.Setenv("EMAIL_USER", "billing@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.MailEnabled())
	assert.Equal(t, DefaultEmailPort, cfg.EmailPort)
	// From falls back to the SMTP user when unset.
	assert.Equal(t, "billing@example.com", cfg.EmailFrom)
}

func TestLoad_MailHostWithoutUser(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_HOST", "smtp.example.com")
	t.Setenv("EMAIL_USER", "")

	_, err := Load()
	require.Error(t, err)
}
