package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

type sampleKey struct {
	key, value, comment string
}

// WriteDefault writes a commented sample configuration to the specified path
func WriteDefault(path string) error {
	f := ini.Empty()

	def, err := f.NewSection(DefaultSection)
	if err != nil {
		return fmt.Errorf("failed to create default section: %w", err)
	}
	def.Comment = "; Settings inherited by every job section below."
	if err := addKeys(def, []sampleKey{
		{KeyUser, "api-reader", "API user, may be overridden per job"},
		{KeyPassword, "changeme", ""},
		{KeyExcludeTriggerRE, "", "regex matched against trigger descriptions"},
		{KeyInteractive, "no", "ask before disabling broken items and triggers"},
		{KeyAttempts, "1", "tries per API call on transport failures"},
	}); err != nil {
		return err
	}

	job, err := f.NewSection("zabbix.example.com")
	if err != nil {
		return fmt.Errorf("failed to create job section: %w", err)
	}
	job.Comment = "; One section per Zabbix server to check."
	if err := addKeys(job, []sampleKey{
		{KeyHost, "https://zabbix.example.com", "frontend URL, api_jsonrpc.php is appended"},
		{KeyExcludeItemIDs, "", "whitespace separated item ids"},
		{KeyExcludeItemRE, "", "regex matched against item keys"},
		{KeyExcludeTriggerIDs, "", "whitespace separated trigger ids"},
		{KeyIncludeHostGroups, "", "whitespace separated host groups, empty checks all"},
		{KeyLoginField, "username", "use 'user' for frontends older than 5.4"},
		{KeyTLSInsecure, "no", "skip TLS certificate verification"},
	}); err != nil {
		return err
	}

	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func addKeys(s *ini.Section, keys []sampleKey) error {
	for _, k := range keys {
		key, err := s.NewKey(k.key, k.value)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", k.key, err)
		}
		if k.comment != "" {
			key.Comment = "; " + k.comment
		}
	}
	return nil
}
