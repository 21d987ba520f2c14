package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Report     ReportConfig     `yaml:"report"`
	Data       DataConfig       `yaml:"data"`
	Database   DatabaseConfig   `yaml:"database"`
	Email      EmailConfig      `yaml:"email"`
	Export     ExportConfig     `yaml:"export"`
	GitHub     GitHubConfig     `yaml:"github"`
	Sheets     SheetsConfig     `yaml:"sheets"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gte=1,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ReadTimeout    int      `yaml:"read_timeout"`
	WriteTimeout   int      `yaml:"write_timeout"`
}

type ReportConfig struct {
	Timezone     string `yaml:"timezone"`
	DefaultRange string `yaml:"default_range" validate:"omitempty,oneof=7days month all"`
	Aggregation  string `yaml:"aggregation" validate:"omitempty,oneof=sparse grid"`
	TopN         int    `yaml:"top_n" validate:"gte=0"`
}

type DataConfig struct {
	Dir         string `yaml:"dir"`
	ClientsFile string `yaml:"clients_file"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Driver   string `yaml:"driver" validate:"omitempty,oneof=postgres sqlite3"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	Path     string `yaml:"path"`
	// KeepSnapshots bounds the stored history per client; 0 keeps everything.
	KeepSnapshots int `yaml:"keep_snapshots" validate:"gte=0"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from" validate:"omitempty,email"`
	FromName string   `yaml:"from_name"`
	CC       []string `yaml:"cc" validate:"dive,email"`
	RelayURL string   `yaml:"relay_url" validate:"omitempty,url"`
}

type ExportConfig struct {
	Backend     string `yaml:"backend" validate:"omitempty,oneof=chromedp selenium"`
	ChromePath  string `yaml:"chrome_path"`
	SeleniumURL string `yaml:"selenium_url"`
	Timeout     int    `yaml:"timeout"`
	OutputDir   string `yaml:"output_dir"`
}

type GitHubConfig struct {
	APIURL          string `yaml:"api_url"`
	Owner           string `yaml:"owner"`
	Repo            string `yaml:"repo"`
	Workflow        string `yaml:"workflow"`
	Ref             string `yaml:"ref"`
	Token           string `yaml:"token"`
	CooldownMinutes int    `yaml:"cooldown_minutes" validate:"gte=0"`
}

type SheetsConfig struct {
	BaseURL       string `yaml:"base_url"`
	Worksheet     string `yaml:"worksheet"`
	Format        string `yaml:"format" validate:"omitempty,oneof=csv html"`
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryDelay    int    `yaml:"retry_delay"`
	Timeout       int    `yaml:"timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File  string `yaml:"file"`
}

type MonitoringConfig struct {
	MetricsFile       string  `yaml:"metrics_file"`
	StaleAfterHours   int     `yaml:"stale_after_hours"`
	MaxEmailErrorRate float64 `yaml:"max_email_error_rate"`
}

// SheetSource is the spreadsheet a client's platform is fetched from.
type SheetSource struct {
	Platform string `yaml:"platform" validate:"required"`
	SheetID  string `yaml:"sheet_id" validate:"required"`
}

// Client is one report audience with its own data file and presentation.
type Client struct {
	Name         string        `yaml:"name" validate:"required"`
	Slug         string        `yaml:"slug" validate:"required,slug"`
	ReportType   string        `yaml:"report_type"`
	Title        string        `yaml:"title"`
	Subtitle     string        `yaml:"subtitle"`
	Logo         string        `yaml:"logo"`
	FooterLogo   string        `yaml:"footer_logo"`
	DataFile     string        `yaml:"data_file"`
	DefaultRange string        `yaml:"default_range" validate:"omitempty,oneof=7days month all"`
	Aggregation  string        `yaml:"aggregation" validate:"omitempty,oneof=sparse grid"`
	ShowTopPosts *bool         `yaml:"show_top_posts"`
	Sheets       []SheetSource `yaml:"sheets" validate:"dive"`
}

// TopPostsVisible defaults to true when show_top_posts is not set.
func (c Client) TopPostsVisible() bool {
	return c.ShowTopPosts == nil || *c.ShowTopPosts
}

var (
	validate    = newValidator()
	slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

func Load(configFile string) (*Config, error) {
	// .env file is optional
	_ = godotenv.Load()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configFile)
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Report.Timezone = getEnvOrDefault("REPORT_TIMEZONE", c.Report.Timezone)

	c.Database.Driver = getEnvOrDefault("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnvOrDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnvOrDefault("DB_USER", c.Database.User)
	c.Database.Password = getEnvOrDefault("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnvOrDefault("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnvOrDefault("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.Path = getEnvOrDefault("DB_PATH", c.Database.Path)

	c.Email.SMTPHost = getEnvOrDefault("SMTP_HOST", c.Email.SMTPHost)
	c.Email.SMTPPort = getEnvInt("SMTP_PORT", c.Email.SMTPPort)
	c.Email.Username = getEnvOrDefault("SMTP_USER", c.Email.Username)
	c.Email.Password = getEnvOrDefault("SMTP_PASSWORD", c.Email.Password)
	c.Email.RelayURL = getEnvOrDefault("EMAIL_RELAY_URL", c.Email.RelayURL)

	c.Export.SeleniumURL = getEnvOrDefault("SELENIUM_URL", c.Export.SeleniumURL)
	c.GitHub.Token = getEnvOrDefault("GITHUB_TOKEN", c.GitHub.Token)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Report.DefaultRange == "" {
		c.Report.DefaultRange = "7days"
	}
	if c.Report.Aggregation == "" {
		c.Report.Aggregation = "sparse"
	}
	if c.Report.TopN == 0 {
		c.Report.TopN = 5
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Data.ClientsFile == "" {
		c.Data.ClientsFile = "configs/clients.yaml"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Export.Backend == "" {
		c.Export.Backend = "chromedp"
	}
	if c.Export.Timeout == 0 {
		c.Export.Timeout = 60
	}
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}
	if c.GitHub.Ref == "" {
		c.GitHub.Ref = "main"
	}
	if c.GitHub.CooldownMinutes == 0 {
		c.GitHub.CooldownMinutes = 5
	}
	if c.Sheets.Worksheet == "" {
		c.Sheets.Worksheet = "raw_data"
	}
	if c.Sheets.Format == "" {
		c.Sheets.Format = "csv"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Monitoring.MetricsFile == "" {
		c.Monitoring.MetricsFile = "data/metrics.json"
	}
	if c.Monitoring.StaleAfterHours == 0 {
		c.Monitoring.StaleAfterHours = 25
	}
	if c.Monitoring.MaxEmailErrorRate == 0 {
		c.Monitoring.MaxEmailErrorRate = 15
	}
}

// Location resolves the report time zone. An empty zone means the process zone.
func (r ReportConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Configured reports whether workflow dispatch has everything it needs.
func (g GitHubConfig) Configured() bool {
	return g.Owner != "" && g.Repo != "" && g.Workflow != "" && g.Token != ""
}

func LoadClients(clientsFile string) ([]Client, error) {
	if _, err := os.Stat(clientsFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("clients file not found: %s", clientsFile)
	}

	data, err := os.ReadFile(clientsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients file: %w", err)
	}

	var clients struct {
		Clients []Client `yaml:"clients"`
	}
	if err := yaml.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("failed to parse clients file: %w", err)
	}

	seen := make(map[string]bool)
	for i := range clients.Clients {
		c := &clients.Clients[i]
		if c.Slug == "" {
			c.Slug = Slugify(c.Name)
		}
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("invalid client %q: %w", c.Name, err)
		}
		if seen[c.Slug] {
			return nil, fmt.Errorf("duplicate client slug: %s", c.Slug)
		}
		seen[c.Slug] = true

		if c.ReportType == "" {
			c.ReportType = "Performance Report"
		}
		if c.DataFile == "" {
			c.DataFile = c.Slug + ".json"
		}
	}
	return clients.Clients, nil
}

// FindClient looks a client up by slug, case-insensitively.
func FindClient(clients []Client, slug string) (Client, bool) {
	for _, c := range clients {
		if strings.EqualFold(c.Slug, slug) {
			return c, true
		}
	}
	return Client{}, false
}

// Slugify lower-cases name and joins its words with '-'.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
