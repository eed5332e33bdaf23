package store

import "fetalscan/internal/report"

// NotificationSettings toggles outbound messages.
type NotificationSettings struct {
	EmailReports bool `json:"emailReports"`
	SMSAlerts    bool `json:"smsAlerts"`
	ReportReady  bool `json:"reportReady"`
	WeeklyDigest bool `json:"weeklyDigest"`
}

// ClinicalSettings holds workflow preferences. Interval and timeout are minutes.
type ClinicalSettings struct {
	AutoSaveInterval       int    `json:"autoSaveInterval"`
	SessionTimeout         int    `json:"sessionTimeout"`
	EnableClinicalWarnings bool   `json:"enableClinicalWarnings"`
	EnableDataExport       bool   `json:"enableDataExport"`
	EnableAuditLog         bool   `json:"enableAuditLog"`
	BackupFrequency        string `json:"backupFrequency"`
}

// Settings is the document stored under KeySettings.
type Settings struct {
	ClinicInfo    report.ClinicInfo    `json:"clinicInfo"`
	Notifications NotificationSettings `json:"notifications"`
	Clinical      ClinicalSettings     `json:"clinicalSettings"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings(clinic report.ClinicInfo) Settings {
	if clinic == (report.ClinicInfo{}) {
		clinic = report.DefaultClinicInfo()
	}
	return Settings{
		ClinicInfo: clinic,
		Notifications: NotificationSettings{
			EmailReports: true,
			ReportReady:  true,
			WeeklyDigest: true,
		},
		Clinical: ClinicalSettings{
			AutoSaveInterval:       5,
			SessionTimeout:         30,
			EnableClinicalWarnings: true,
			EnableDataExport:       true,
			EnableAuditLog:         true,
			BackupFrequency:        "daily",
		},
	}
}
