package config

import (
	"os"

	"github.com/tidwall/gjson"
)

// Editor settings.json keys that contribute exclude globs.
var settingsExcludeKeys = []string{
	"files.exclude",
	"search.exclude",
}

// MergeEditorSettings extracts exclude globs from an editor's settings.json
// content and adds them to the configuration.
//
// The keys are maps of glob pattern to boolean; only truthy entries count
// (editors use false to re-enable a pattern a broader scope disabled).
// Invalid JSON contributes nothing; the host's settings file is not this
// engine's to police.
func (c *Config) MergeEditorSettings(settingsJSON []byte) {
	if !gjson.ValidBytes(settingsJSON) {
		return
	}

	var globs []string
	for _, key := range settingsExcludeKeys {
		result := gjson.GetBytes(settingsJSON, key)
		if !result.IsObject() {
			continue
		}
		result.ForEach(func(pattern, enabled gjson.Result) bool {
			if enabled.Bool() {
				globs = append(globs, pattern.String())
			}
			return true
		})
	}

	c.AddExcludes(globs)
}

// MergeEditorSettingsFile reads settings.json from disk and merges it.
// A missing or unreadable file contributes nothing.
func (c *Config) MergeEditorSettingsFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	c.MergeEditorSettings(data)
}
