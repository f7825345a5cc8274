package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/notify"
	"resultfetcher/internal/portal"
	"resultfetcher/internal/store"
	"resultfetcher/pkg/configutil"
	"time"

	"dario.cat/mergo"
)

type PortalConfig struct {
	LoginUrl          string  `json:"login_url"`
	DashboardUrl      string  `json:"dashboard_url"`
	ResultsUrl        string  `json:"results_url"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
	// DisableCloudflareBypass sends requests with the stock TLS fingerprint.
	DisableCloudflareBypass bool `json:"disable_cloudflare_bypass"`
	// DumpDir records every http exchange per student, for debugging portal changes.
	DumpDir string `json:"dump_dir"`
}

func (p PortalConfig) Endpoints() portal.Endpoints {
	return portal.Endpoints{
		Login:     p.LoginUrl,
		Dashboard: p.DashboardUrl,
		Results:   p.ResultsUrl,
	}
}

func (p PortalConfig) Options() portal.Options {
	return portal.Options{
		Timeout:           time.Duration(p.TimeoutSeconds) * time.Second,
		RequestsPerSecond: p.RequestsPerSecond,
		UserAgent:         p.UserAgent,
		BypassCloudflare:  !p.DisableCloudflareBypass,
		DumpDir:           p.DumpDir,
	}
}

type BatchConfig struct {
	// PacingMs is the minimum delay between two students.
	PacingMs     int    `json:"pacing_ms"`
	StudentsFile string `json:"students_file"`
	CreditsFile  string `json:"credits_file"`
	RankedSheet  string `json:"ranked_sheet"`
	StudentSheet string `json:"student_sheet"`
}

func (b BatchConfig) Pacing() time.Duration {
	return time.Duration(b.PacingMs) * time.Millisecond
}

type EmailConfig struct {
	Enabled     bool              `json:"enabled"`
	Smtp        notify.SmtpConfig `json:"smtp"`
	From        string            `json:"from"`
	Domain      string            `json:"domain"`
	PacingMs    int               `json:"pacing_ms"`
	Institution string            `json:"institution"`
}

func (e EmailConfig) Options() notify.Options {
	from := e.From
	if from == "" {
		from = e.Smtp.EmailAddress
	}
	return notify.Options{
		From:        from,
		Domain:      e.Domain,
		Pacing:      time.Duration(e.PacingMs) * time.Millisecond,
		Institution: e.Institution,
	}
}

type Config struct {
	Portal    PortalConfig     `json:"portal"`
	Batch     BatchConfig      `json:"batch"`
	Database  store.Config     `json:"database"`
	Email     EmailConfig      `json:"email"`
	Timezone  string           `json:"timezone"`
	Telemetry telemetry.Config `json:"telemetry"`
}

// Default is the configuration used for every field a config file leaves out.
func Default() Config {
	return Config{
		Portal: PortalConfig{
			LoginUrl:          "https://ucsc.cmb.ac.lk/student-portal/public/index.php/login",
			DashboardUrl:      "https://ucsc.cmb.ac.lk/student-portal/public/index.php",
			ResultsUrl:        "https://ucsc.cmb.ac.lk/student-portal/public/index.php/results",
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
			UserAgent:         portal.DefaultUserAgent,
		},
		Batch: BatchConfig{
			PacingMs:     1000,
			StudentsFile: "student_credentials.csv",
			CreditsFile:  "credits.csv",
			RankedSheet:  "results.csv",
			StudentSheet: "student_results.csv",
		},
		Database: store.Config{
			File: "results.db",
		},
		Email: EmailConfig{
			Smtp: notify.SmtpConfig{
				Server: "smtp.gmail.com",
				Port:   587,
			},
			Domain:      "stu.ucsc.cmb.ac.lk",
			PacingMs:    500,
			Institution: "UCSC",
		},
		Timezone: "Asia/Colombo",
	}
}

func (c Config) Validate() error {
	err := c.Portal.Endpoints().Validate()
	if err != nil {
		return fmt.Errorf("portal: %w", err)
	}
	if c.Email.Enabled && c.Email.Smtp.EmailAddress == "" {
		return fmt.Errorf("email: smtp.email_address is required when email is enabled")
	}
	return nil
}

// Load reads the config file at `path` (and its .local override), a missing
// file gives the defaults.
// Locate searches `dir` and its parents for the relative config `name`. When
// no directory has it, `name` is returned unchanged and Load uses defaults.
func Locate(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	path, err := configutil.Find(dir, name)
	if errors.Is(err, os.ErrNotExist) {
		return name, nil
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func Load(path string) (Config, error) {
	cfg, err := configutil.Read[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	err = mergo.Merge(&cfg, Default())
	if err != nil {
		return Config{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
