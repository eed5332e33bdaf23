package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeUser()
	c.normalizeClinic()
	c.normalizeReport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("FETALSCAN_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeUser() {
	c.User.Name = strings.TrimSpace(c.User.Name)
	if c.User.Name == "" {
		c.User.Name = defaultUserName
	}
	c.User.Email = strings.TrimSpace(c.User.Email)
}

func (c *Config) normalizeClinic() {
	c.Clinic.Name = strings.TrimSpace(c.Clinic.Name)
	c.Clinic.Department = strings.TrimSpace(c.Clinic.Department)
	c.Clinic.Address = strings.TrimSpace(c.Clinic.Address)
	c.Clinic.Phone = strings.TrimSpace(c.Clinic.Phone)
	c.Clinic.Email = strings.TrimSpace(c.Clinic.Email)
	c.Clinic.Website = strings.TrimSpace(c.Clinic.Website)
}

func (c *Config) normalizeReport() {
	c.Report.Title = strings.TrimSpace(c.Report.Title)
	if c.Report.Title == "" {
		c.Report.Title = defaultReportTitle
	}
	c.Report.FooterContact = strings.TrimSpace(c.Report.FooterContact)
	c.Report.PlaceholderImage = strings.TrimSpace(c.Report.PlaceholderImage)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
