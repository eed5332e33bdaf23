package config

const (
	defaultConfigPath       = "~/.config/fetalscan/config.toml"
	defaultDataDir          = "~/.local/share/fetalscan"
	defaultOutputDir        = "~/.local/share/fetalscan/reports"
	defaultLogDir           = "~/.local/share/fetalscan/logs"
	defaultAPIBind          = "127.0.0.1:7480"
	defaultUserName         = "Admin User"
	defaultUserEmail        = "admin@clinic.com"
	defaultClinicName       = "JAMMI SCANS"
	defaultClinicDepartment = "DEPARTMENT OF FETAL MEDICINE"
	defaultClinicAddress    = "No:16 Vaidhyaraman Street, Tnagar"
	defaultClinicPhone      = "+1 (555) 123-4567"
	defaultClinicEmail      = "info@jammiscans.com"
	defaultClinicWebsite    = "https://jammiscans.com"
	defaultReportTitle      = "OBSTETRIC ULTRASOUND REPORT"
	defaultFooterContact    = "FOR APPOINTMENTS CONTACT: 7904513421 / 7358771733"
	defaultPlaceholderImage = "https://images.pexels.com/photos/356079/pexels-photo-356079.jpeg"
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		User: User{
			Name:  defaultUserName,
			Email: defaultUserEmail,
		},
		Clinic: Clinic{
			Name:       defaultClinicName,
			Department: defaultClinicDepartment,
			Address:    defaultClinicAddress,
			Phone:      defaultClinicPhone,
			Email:      defaultClinicEmail,
			Website:    defaultClinicWebsite,
		},
		Report: Report{
			Title:            defaultReportTitle,
			FooterContact:    defaultFooterContact,
			PlaceholderImage: defaultPlaceholderImage,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
