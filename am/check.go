package am

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/teranos/issuebot/errors"
)

// CheckResult reports problems found in a single config file
type CheckResult struct {
	Path        string
	UnknownKeys []string // keys present in the file that no Config field reads
	Err         error    // validation error after applying defaults, if any
}

// OK reports whether the file has neither unknown keys nor validation errors
func (r CheckResult) OK() bool {
	return len(r.UnknownKeys) == 0 && r.Err == nil
}

// CheckFile decodes configPath strictly and validates the result.
// Viper silently ignores misspelled keys; this surfaces them.
func CheckFile(configPath string) (CheckResult, error) {
	result := CheckResult{Path: configPath}

	var raw Config
	md, err := toml.DecodeFile(configPath, &raw)
	if err != nil {
		return result, errors.Wrapf(err, "failed to parse %s", configPath)
	}

	for _, key := range md.Undecoded() {
		result.UnknownKeys = append(result.UnknownKeys, key.String())
	}
	sort.Strings(result.UnknownKeys)

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		return result, err
	}
	result.Err = cfg.Validate()

	return result, nil
}
