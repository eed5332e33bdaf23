package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fetalscan/internal/store"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change stored preferences",
	}

	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))

	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show stored preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(_ context.Context, s *session) error {
				settings := s.ctrl.Settings()
				if ctx.jsonOutput() {
					return writeJSON(cmd, settings)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, settingRows(settings), nil))
				return nil
			})
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "set <key=value>...",
		Short:   "Change stored preferences",
		Example: "  fetalscan settings set clinic.name='Harbor Imaging' clinical.enableClinicalWarnings=false",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				settings := s.ctrl.Settings()
				for _, arg := range args {
					if err := applySetting(&settings, arg); err != nil {
						return err
					}
				}
				saved, err := s.ctrl.SaveSettings(c, settings)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, saved)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d setting(s)\n", len(args))
				return nil
			})
		},
	}
}

type settingField struct {
	get func(*store.Settings) string
	set func(*store.Settings, string) error
}

func textSetting(field func(*store.Settings) *string) settingField {
	return settingField{
		get: func(s *store.Settings) string { return *field(s) },
		set: func(s *store.Settings, value string) error {
			*field(s) = value
			return nil
		},
	}
}

func boolSetting(field func(*store.Settings) *bool) settingField {
	return settingField{
		get: func(s *store.Settings) string { return strconv.FormatBool(*field(s)) },
		set: func(s *store.Settings, value string) error {
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", value)
			}
			*field(s) = parsed
			return nil
		},
	}
}

func minutesSetting(field func(*store.Settings) *int) settingField {
	return settingField{
		get: func(s *store.Settings) string { return strconv.Itoa(*field(s)) },
		set: func(s *store.Settings, value string) error {
			parsed, err := strconv.Atoi(value)
			if err != nil || parsed <= 0 {
				return fmt.Errorf("expected a positive number of minutes, got %q", value)
			}
			*field(s) = parsed
			return nil
		},
	}
}

var settingFields = map[string]settingField{
	"clinic.name":                     textSetting(func(s *store.Settings) *string { return &s.ClinicInfo.Name }),
	"clinic.department":               textSetting(func(s *store.Settings) *string { return &s.ClinicInfo.Department }),
	"clinic.address":                  textSetting(func(s *store.Settings) *string { return &s.ClinicInfo.Address }),
	"clinic.phone":                    textSetting(func(s *store.Settings) *string { return &s.ClinicInfo.Phone }),
	"clinic.email":                    textSetting(func(s *store.Settings) *string { return &s.ClinicInfo.Email }),
	"clinic.website":                  textSetting(func(s *store.Settings) *string { return &s.ClinicInfo.Website }),
	"notifications.emailReports":      boolSetting(func(s *store.Settings) *bool { return &s.Notifications.EmailReports }),
	"notifications.smsAlerts":         boolSetting(func(s *store.Settings) *bool { return &s.Notifications.SMSAlerts }),
	"notifications.reportReady":       boolSetting(func(s *store.Settings) *bool { return &s.Notifications.ReportReady }),
	"notifications.weeklyDigest":      boolSetting(func(s *store.Settings) *bool { return &s.Notifications.WeeklyDigest }),
	"clinical.autoSaveInterval":       minutesSetting(func(s *store.Settings) *int { return &s.Clinical.AutoSaveInterval }),
	"clinical.sessionTimeout":         minutesSetting(func(s *store.Settings) *int { return &s.Clinical.SessionTimeout }),
	"clinical.enableClinicalWarnings": boolSetting(func(s *store.Settings) *bool { return &s.Clinical.EnableClinicalWarnings }),
	"clinical.enableDataExport":       boolSetting(func(s *store.Settings) *bool { return &s.Clinical.EnableDataExport }),
	"clinical.enableAuditLog":         boolSetting(func(s *store.Settings) *bool { return &s.Clinical.EnableAuditLog }),
	"clinical.backupFrequency":        textSetting(func(s *store.Settings) *string { return &s.Clinical.BackupFrequency }),
}

func settingKeys() []string {
	keys := make([]string, 0, len(settingFields))
	for key := range settingFields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func settingRows(settings store.Settings) [][]string {
	keys := settingKeys()
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, settingFields[key].get(&settings)})
	}
	return rows
}

func applySetting(settings *store.Settings, arg string) error {
	key, value, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("setting %q: expected key=value", arg)
	}
	key = strings.TrimSpace(key)
	field, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(settingKeys(), ", "))
	}
	if err := field.set(settings, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}
