package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the typed application configuration.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	DataDir string        `mapstructure:"data_dir"`
	Session SessionConfig `mapstructure:"session"`
	DB      DBConfig      `mapstructure:"db"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Web     WebConfig     `mapstructure:"web"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"` // local | production | testing
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

type HTTPConfig struct {
	Port      int `mapstructure:"port"`       // 0 disables plain HTTP
	HTTPSPort int `mapstructure:"https_port"` // 0 disables HTTPS
}

type SessionConfig struct {
	Files          bool `mapstructure:"files"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	File   string `mapstructure:"file"`
	Host   string `mapstructure:"host"`
	Name   string `mapstructure:"name"`
	User   string `mapstructure:"user"`
	Pass   string `mapstructure:"pass"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type WebConfig struct {
	Dir      string   `mapstructure:"dir"`
	Subpages []string `mapstructure:"subpages"`
}

type AuthConfig struct {
	AllowRegistration bool `mapstructure:"allow_registration"`
	GuardPathAccess   bool `mapstructure:"guard_path_access"`
}

type AdminConfig struct {
	GuardPages bool `mapstructure:"guard_pages"`
}

// envAliases maps config keys to the plain environment names accepted
// besides the KATAPULT_ prefixed ones.
var envAliases = map[string][]string{
	"app.name":  {"APP_NAME"},
	"app.env":   {"APP_ENV"},
	"app.debug": {"APP_DEBUG"},
	"db.driver": {"DB_TYPE", "DB_DRIVER"},
	"db.file":   {"SQLITE_FILE"},
	"db.host":   {"PG_HOST"},
	"db.name":   {"PG_NAME"},
	"db.user":   {"PG_USER"},
	"db.pass":   {"PG_PASS"},
}

// SetDefaults installs the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "katapult")
	v.SetDefault("app.env", "production")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("http.port", 80)
	v.SetDefault("http.https_port", 443)
	v.SetDefault("data_dir", "data")
	v.SetDefault("session.files", false)
	v.SetDefault("session.timeout_seconds", 0)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.file", "katapult.db")
	v.SetDefault("cors.origins", []string{})
	v.SetDefault("web.dir", "web")
	v.SetDefault("web.subpages", []string{})
	v.SetDefault("auth.allow_registration", true)
	v.SetDefault("auth.guard_path_access", false)
	v.SetDefault("admin.guard_pages", false)
}

// Load reads .env files (if present), layers defaults, environment and any
// config file already set on v, and returns the typed result. Flags bound
// to v win over everything else.
//
//	v := viper.New()
//	v.SetConfigFile("katapult.yaml")
//	cfg, err := config.Load(v)
func Load(v *viper.Viper, envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Missing .env files are normal outside development.
	_ = godotenv.Load(files...)

	SetDefaults(v)
	v.SetEnvPrefix("KATAPULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{"KATAPULT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, err
		}
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.CORS.Origins = splitList(cfg.CORS.Origins)
	cfg.Web.Subpages = splitList(cfg.Web.Subpages)
	return &cfg, nil
}

// splitList accepts both a YAML list and a comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports configuration that cannot start a server.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http port %d out of range", c.HTTP.Port))
	}
	if c.HTTP.HTTPSPort < 0 || c.HTTP.HTTPSPort > 65535 {
		errs = append(errs, fmt.Errorf("https port %d out of range", c.HTTP.HTTPSPort))
	}
	if c.HTTP.Port == 0 && c.HTTP.HTTPSPort == 0 {
		errs = append(errs, errors.New("both http and https are disabled"))
	}
	if c.Session.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("session timeout must not be negative"))
	}

	switch c.DB.Driver {
	case "sqlite":
		if c.DB.File == "" {
			errs = append(errs, errors.New("sqlite needs --db-file"))
		}
	case "postgres":
		for flag, val := range map[string]string{
			"--db-host": c.DB.Host, "--db-name": c.DB.Name,
			"--db-user": c.DB.User, "--db-pass": c.DB.Pass,
		} {
			if val == "" {
				errs = append(errs, fmt.Errorf("postgres needs %s", flag))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown db driver %q (want sqlite or postgres)", c.DB.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsLocal reports a local development environment.
func (c *Config) IsLocal() bool { return c.App.Env == "local" }

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}
