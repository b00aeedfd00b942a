package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pauljones0/shift-code-watcher/internal/util"
)

const (
	DefaultCodesURL  = "https://mentalmars.com/game-news/borderlands-4-shift-codes/"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Fetch modes.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Store backends.
const (
	StoreBackendFile      = "file"
	StoreBackendFirestore = "firestore"
)

// Notification transports.
const (
	TransportLog     = "log"
	TransportMailjet = "mailjet"
	TransportGmail   = "gmail"
	TransportSMTP    = "smtp"
	TransportDiscord = "discord"
)

type MailjetConfig struct {
	APIKey    string
	APISecret string
	FromEmail string
	FromName  string
}

type GmailConfig struct {
	CredentialsJSON string
	Sender          string
	SenderName      string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Config struct {
	CodesURL       string
	AllowedDomains []string
	FetchMode      string
	FetchTimeout   time.Duration
	UserAgent      string
	SelectorsPath  string

	StoreBackend        string
	StateFile           string
	ProjectID           string
	FirestoreCollection string
	FirestoreDocument   string

	NotifyTransport   string
	RecipientEmail    string
	Mailjet           MailjetConfig
	Gmail             GmailConfig
	SMTP              SMTPConfig
	DiscordWebhookURL string

	SuppressFirstRun bool
	RequireDelivery  bool
	// DryRun is set by the run command's --dry-run flag, never from the environment.
	DryRun bool

	Port     string
	Schedule string

	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment variables
// take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	codesURL := getEnv("SHIFT_CODES_URL", DefaultCodesURL)
	parsedURL, err := url.Parse(codesURL)
	if err != nil || parsedURL.Hostname() == "" {
		return nil, fmt.Errorf("invalid SHIFT_CODES_URL %q", codesURL)
	}

	allowedDomains := []string{parsedURL.Hostname()}
	if v := os.Getenv("ALLOWED_DOMAINS"); v != "" {
		allowedDomains = splitList(v)
	}

	fetchMode := strings.ToLower(getEnv("FETCH_MODE", FetchModeHTTP))
	if fetchMode != FetchModeHTTP && fetchMode != FetchModeBrowser {
		return nil, fmt.Errorf("invalid FETCH_MODE %q: must be %q or %q", fetchMode, FetchModeHTTP, FetchModeBrowser)
	}

	fetchTimeoutStr := getEnv("FETCH_TIMEOUT", "30s")
	fetchTimeout, err := time.ParseDuration(fetchTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT %q: %w", fetchTimeoutStr, err)
	}
	if fetchTimeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", fetchTimeout)
	}

	cfg := &Config{
		CodesURL:       codesURL,
		AllowedDomains: allowedDomains,
		FetchMode:      fetchMode,
		FetchTimeout:   fetchTimeout,
		UserAgent:      getEnv("USER_AGENT", DefaultUserAgent),
		SelectorsPath:  os.Getenv("SELECTORS_CONFIG_PATH"),

		StoreBackend:        strings.ToLower(getEnv("STORE_BACKEND", StoreBackendFile)),
		StateFile:           getEnv("STATE_FILE", "known_codes.json"),
		ProjectID:           os.Getenv("GOOGLE_CLOUD_PROJECT"),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "shift_state"),
		FirestoreDocument:   getEnv("FIRESTORE_DOCUMENT", "known_codes"),

		NotifyTransport: strings.ToLower(getEnv("NOTIFY_TRANSPORT", TransportLog)),
		RecipientEmail:  os.Getenv("RECIPIENT_EMAIL"),
		Mailjet: MailjetConfig{
			APIKey:    os.Getenv("MAILJET_API_KEY"),
			APISecret: os.Getenv("MAILJET_API_SECRET"),
			FromEmail: os.Getenv("MAILJET_FROM_EMAIL"),
			FromName:  getEnv("MAILJET_FROM_NAME", "Borderlands Monitor"),
		},
		Gmail: GmailConfig{
			CredentialsJSON: os.Getenv("GMAIL_CREDENTIALS_JSON"),
			Sender:          os.Getenv("GMAIL_SENDER"),
			SenderName:      getEnv("GMAIL_SENDER_NAME", "Borderlands Monitor"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),

		Port:     getEnv("PORT", "8080"),
		Schedule: os.Getenv("SCHEDULE"),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	// Mailjet sends from the recipient address unless told otherwise.
	if cfg.Mailjet.FromEmail == "" {
		cfg.Mailjet.FromEmail = cfg.RecipientEmail
	}

	smtpPort := getEnv("SMTP_PORT", "587")
	cfg.SMTP.Port, err = strconv.Atoi(smtpPort)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", smtpPort, err)
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	if cfg.SuppressFirstRun, err = getBool("SUPPRESS_FIRST_RUN", false); err != nil {
		return nil, err
	}
	if cfg.RequireDelivery, err = getBool("REQUIRE_DELIVERY", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreBackendFile:
		if c.StateFile == "" {
			return fmt.Errorf("STATE_FILE must not be empty for the file store")
		}
	case StoreBackendFirestore:
		if c.ProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required for the firestore store")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: must be %q or %q", c.StoreBackend, StoreBackendFile, StoreBackendFirestore)
	}

	switch c.NotifyTransport {
	case TransportLog:
	case TransportMailjet:
		if c.Mailjet.APIKey == "" || c.Mailjet.APISecret == "" {
			return fmt.Errorf("MAILJET_API_KEY and MAILJET_API_SECRET must be set for the mailjet transport")
		}
	case TransportGmail:
		if c.Gmail.CredentialsJSON == "" || c.Gmail.Sender == "" {
			return fmt.Errorf("GMAIL_CREDENTIALS_JSON and GMAIL_SENDER must be set for the gmail transport")
		}
	case TransportSMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM (or SMTP_USERNAME) must be set for the smtp transport")
		}
	case TransportDiscord:
		if c.DiscordWebhookURL == "" {
			return fmt.Errorf("DISCORD_WEBHOOK_URL must be set for the discord transport")
		}
	default:
		return fmt.Errorf("invalid NOTIFY_TRANSPORT %q", c.NotifyTransport)
	}

	if c.IsEmailTransport() && c.RecipientEmail == "" {
		return fmt.Errorf("RECIPIENT_EMAIL environment variable is required for the %s transport", c.NotifyTransport)
	}

	if c.NotifyTransport == TransportLog && c.RecipientEmail == "" {
		slog.Warn("RECIPIENT_EMAIL not set, new codes will only be logged")
	}
	return nil
}

// IsEmailTransport reports whether the configured transport delivers to RecipientEmail.
func (c *Config) IsEmailTransport() bool {
	switch c.NotifyTransport {
	case TransportMailjet, TransportGmail, TransportSMTP:
		return true
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := util.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
