package config

import "github.com/spf13/viper"

// LogSettings are logging defaults taken from the environment
type LogSettings struct {
	Level    string // LOG_LEVEL: debug2, debug, info, warning, error, critical
	Datetime bool   // LOG_DATETIME: prefix lines with a timestamp
}

// LogSettingsFromEnv reads LOG_LEVEL and LOG_DATETIME
func LogSettingsFromEnv() LogSettings {
	v := viper.New()
	_ = v.BindEnv("level", "LOG_LEVEL")
	_ = v.BindEnv("datetime", "LOG_DATETIME")
	v.SetDefault("level", "info")
	v.SetDefault("datetime", false)

	return LogSettings{
		Level:    v.GetString("level"),
		Datetime: v.GetBool("datetime"),
	}
}
