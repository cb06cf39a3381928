package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	HTTPPort    int      `yaml:"http_port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Site        Site     `yaml:"site"`
	Mail        Mail     `yaml:"mail"`
	Outbox      Outbox   `yaml:"outbox"`
	Log         Log      `yaml:"log"`
}

// Site is the identity substituted into every personalized email.
type Site struct {
	Domain          string `yaml:"domain" validate:"required"`
	Name            string `yaml:"name"`
	Protocol        string `yaml:"protocol" validate:"oneof=http https"`
	UnsubscribePath string `yaml:"unsubscribe_path" validate:"startswith=/"`
}

type Mail struct {
	DefaultFrom     string `yaml:"default_from" validate:"required"` // used when list settings carry no from address
	Transport       string `yaml:"transport" validate:"oneof=smtp ses mbox stdout"`
	AttachmentsRoot string `yaml:"attachments_root" validate:"required"`
	MboxPath        string `yaml:"mbox_path" validate:"required_if=Transport mbox"`
	SMTP            SMTP   `yaml:"smtp"`
	SES             SES    `yaml:"ses"`
}

type SMTP struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Timeout  int    `yaml:"timeout"` // seconds
}

type SES struct {
	Region string `yaml:"region"`
}

type Outbox struct {
	Cron        string `yaml:"cron"`
	Concurrency int    `yaml:"concurrency" validate:"min=1"`
	BatchLimit  int    `yaml:"batch_limit" validate:"min=1"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Private struct {
	Pg                 Pg     `yaml:"pg"`
	SMTPPassword       string `yaml:"smtp_password"`
	SESAccessKeyID     string `yaml:"ses_access_key_id"`
	SESSecretAccessKey string `yaml:"ses_secret_access_key"`
}

type Pg struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname" validate:"required"`
}

func (p *Public) applyDefaults() {
	if p.HTTPPort == 0 {
		p.HTTPPort = 8080
	}
	if p.Site.Protocol == "" {
		p.Site.Protocol = "https"
	}
	if p.Site.UnsubscribePath == "" {
		p.Site.UnsubscribePath = "/membership/my-family/"
	}
	if p.Mail.Transport == "" {
		p.Mail.Transport = "stdout"
	}
	if p.Mail.SMTP.Port == 0 {
		p.Mail.SMTP.Port = 587
	}
	if p.Outbox.Cron == "" {
		p.Outbox.Cron = "* * * * *"
	}
	if p.Outbox.Concurrency == 0 {
		p.Outbox.Concurrency = 4
	}
	if p.Outbox.BatchLimit == 0 {
		p.Outbox.BatchLimit = 100
	}
	if p.Log.Level == "" {
		p.Log.Level = "info"
	}
}

// applyEnv lets secrets live outside private.yaml.
func (p *Private) applyEnv() {
	if v := os.Getenv("POSTOFFICE_PG_PASSWORD"); v != "" {
		p.Pg.Password = v
	}
	if v := os.Getenv("POSTOFFICE_SMTP_PASSWORD"); v != "" {
		p.SMTPPassword = v
	}
	if v := os.Getenv("POSTOFFICE_SES_ACCESS_KEY_ID"); v != "" {
		p.SESAccessKeyID = v
	}
	if v := os.Getenv("POSTOFFICE_SES_SECRET_ACCESS_KEY"); v != "" {
		p.SESSecretAccessKey = v
	}
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file: " + configPath)
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic(fmt.Sprintf("can't unmarshal config file %s: %v", configPath, err))
	}
}

// loadDotEnv reads <folder>/.env into the process environment. A missing
// file is fine; variables already set in the environment win.
func loadDotEnv(configFolder string) {
	err := godotenv.Load(path.Join(configFolder, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("can't read .env file: %v", err))
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder, overlays
// secrets from the environment and validates the result. It panics on any
// problem since the service cannot start without a usable config.
func MustLoad(configFolder string) *Config {
	loadDotEnv(configFolder)

	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)
	public.applyDefaults()

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)
	private.applyEnv()

	cfg := &Config{Public: public, Private: private}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
	return cfg
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(c)
}
