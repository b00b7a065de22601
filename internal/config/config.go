package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	PublicURL string
	Branch    string

	// Telephony provider credentials and numbers.
	AccountSID      string
	AuthToken       string
	SMSNumber       string
	CallerIDNumber  string
	TransferTarget  string
	BroadcastPhones []string
	NotifyPhone     string

	// Remote settings endpoint plus static fallbacks.
	SettingsURL  string
	SettingsPath string
	ContactsPath string

	// Admin surface.
	AdminDBPath string
	UsersPath   string
	JWTSecret   string
	Branches    map[string]string

	// Call behavior defaults; the settings resolver may override these
	// at runtime.
	TransferMode bool
	MapLinks     bool
	RingTimeout  int
	HoldMusicURL string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBranches reads "key=url,key=url" pairs for sibling-instance probing.
func parseBranches(raw string) map[string]string {
	out := map[string]string{}
	for _, p := range splitList(raw) {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

func Load() Config {
	cfg := Config{
		HTTPAddr:  getenv("DISPATCHCORE_HTTP_ADDR", ":8080"),
		PublicURL: getenv("DISPATCHCORE_PUBLIC_URL", "http://localhost:8080"),
		Branch:    getenv("DISPATCHCORE_BRANCH", "main"),

		AccountSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:       os.Getenv("TWILIO_AUTH_TOKEN"),
		SMSNumber:       os.Getenv("TWILIO_AUTOMATED_NUMBER"),
		CallerIDNumber:  os.Getenv("TWILIO_TRANSFER_NUMBER"),
		TransferTarget:  os.Getenv("TRANSFER_TARGET_PHONE_NUMBER"),
		BroadcastPhones: splitList(os.Getenv("RECIPIENT_PHONES")),
		NotifyPhone:     os.Getenv("NOTIFICATION_PHONE"),

		SettingsURL:  os.Getenv("DISPATCHCORE_SETTINGS_URL"),
		SettingsPath: getenv("DISPATCHCORE_SETTINGS_PATH", "config/settings.yaml"),
		ContactsPath: getenv("DISPATCHCORE_CONTACTS_PATH", "config/contacts.yaml"),

		AdminDBPath: getenv("DISPATCHCORE_ADMIN_DB", "data/admin.db"),
		UsersPath:   getenv("DISPATCHCORE_USERS_PATH", "config/users.yaml"),
		JWTSecret:   os.Getenv("DISPATCHCORE_JWT_SECRET"),
		Branches:    parseBranches(os.Getenv("DISPATCHCORE_BRANCHES")),

		TransferMode: getenvBool("DISPATCHCORE_TRANSFER_MODE", false),
		MapLinks:     getenvBool("DISPATCHCORE_MAP_LINKS", false),
		RingTimeout:  getenvInt("DISPATCHCORE_RING_TIMEOUT", 20),
		HoldMusicURL: getenv("DISPATCHCORE_HOLD_MUSIC_URL",
			"http://com.twilio.music.classical.s3.amazonaws.com/BusyStrings.mp3"),
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}
	return cfg
}
