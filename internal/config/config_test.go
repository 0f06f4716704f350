package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"POP3_SERVER", "IMAP_SERVER", "MAILBOX_PORT", "EMAIL_ACCOUNT", "EMAIL_PASSWORD",
		"SMTP_SERVER", "SMTP_PORT", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"PROMPT_LANGUAGE", "MQ_URL", "REDIS_ADDR", "REDIS_PASSWORD", "METRICS_ADDR",
	} {
		t.Setenv(k, "")
	}
}

const baseYAML = `
mailbox:
  protocol: pop3
  host: pop.example.com
  port: 995
  tls: true
  username: ${EMAIL_USER}
  password: ${EMAIL_PASS}
  timeout: 20s
smtp:
  host: smtp.example.com
  port: 587
  username: ${EMAIL_USER}
  password: ${EMAIL_PASS}
llm:
  api_key: ${LLM_KEY}
  model: gpt-4o-mini
  language: ko
reply:
  enabled: true
  cc: [team@example.com]
redis:
  lock_ttl: 5m
`

func TestLoadFrom_MergesFilesAndSecrets(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", baseYAML)
	writeFile(t, dir, "prod.yaml", "reply:\n  send_failed_drafts: true\n")
	writeFile(t, dir, "secrets.env", "EMAIL_USER=bot@example.com\nEMAIL_PASS=p$ss\nLLM_KEY=sk-1\n")

	cfg, err := LoadFrom("prod", dir)
	require.NoError(t, err)

	assert.Equal(t, "pop3", cfg.Mailbox.Protocol)
	assert.Equal(t, 995, cfg.Mailbox.Port)
	assert.True(t, cfg.Mailbox.TLS)
	assert.Equal(t, "bot@example.com", cfg.Mailbox.Username)
	assert.Equal(t, "p$ss", cfg.Mailbox.Password)
	assert.Equal(t, 20*time.Second, cfg.Mailbox.Timeout)
	assert.Equal(t, "bot@example.com", cfg.SMTP.From)
	assert.Equal(t, "sk-1", cfg.LLM.APIKey)
	assert.Equal(t, "ko", cfg.LLM.Language)
	assert.True(t, cfg.Reply.Enabled)
	assert.True(t, cfg.Reply.SendFailedDrafts)
	assert.Equal(t, []string{"team@example.com"}, cfg.Reply.Cc)
	assert.Equal(t, 5*time.Minute, cfg.Redis.LockTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFrom_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", baseYAML)
	t.Setenv("IMAP_SERVER", "imap.example.org")
	t.Setenv("EMAIL_ACCOUNT", "me@example.org")
	t.Setenv("EMAIL_PASSWORD", "env-secret")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("OPENAI_MODEL", "gpt-4.1")
	t.Setenv("METRICS_ADDR", ":9102")

	cfg, err := LoadFrom("", dir)
	require.NoError(t, err)

	assert.Equal(t, "imap", cfg.Mailbox.Protocol)
	assert.Equal(t, "imap.example.org", cfg.Mailbox.Host)
	assert.Equal(t, 0, cfg.Mailbox.Port, "left for the IMAP default")
	assert.Equal(t, "me@example.org", cfg.Mailbox.Username)
	assert.Equal(t, "env-secret", cfg.SMTP.Password)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
}

func TestLoadFrom_MissingBase(t *testing.T) {
	_, err := LoadFrom("", t.TempDir())
	assert.Error(t, err)
}

func TestValidate_ReportsAllMissing(t *testing.T) {
	cfg := &Config{}
	cfg.Reply.Enabled = true
	cfg.Mailbox.Protocol = "mapi"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"mailbox.host", "mailbox.username", "mailbox.password", "llm.api_key", "smtp.host", "smtp.from", "mapi"} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_DryRunNeedsNoSMTP(t *testing.T) {
	cfg := &Config{}
	cfg.Mailbox.Host = "pop.example.com"
	cfg.Mailbox.Username = "u"
	cfg.Mailbox.Password = "p"
	cfg.LLM.APIKey = "k"

	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateSMTP())
}
