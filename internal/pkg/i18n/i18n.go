// Package i18n holds display labels for donation types, urgencies, roles and
// notification subjects, loaded per locale from <root>/<locale>/labels.yaml.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const DefaultLocale = "en"

type Labels map[string]string

var (
	locales = make(map[string]Labels)
	mu      sync.RWMutex
)

type labelFile struct {
	Donation     Labels `yaml:"DONATION"`
	Urgency      Labels `yaml:"URGENCY"`
	Role         Labels `yaml:"ROLE"`
	Notification Labels `yaml:"NOTIFICATION"`
	Export       Labels `yaml:"EXPORT"`
}

// LoadLabels reads every locale directory under root. Directories without a
// labels file are skipped.
func LoadLabels(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}

	loaded := make(map[string]Labels)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name(), "labels.yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var file labelFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		loaded[entry.Name()] = flatten(file)
	}

	mu.Lock()
	for locale, labels := range loaded {
		locales[locale] = labels
	}
	mu.Unlock()
	return nil
}

func flatten(f labelFile) Labels {
	out := make(Labels)
	sections := map[string]Labels{
		"donation":     f.Donation,
		"urgency":      f.Urgency,
		"role":         f.Role,
		"notification": f.Notification,
		"export":       f.Export,
	}
	for prefix, labels := range sections {
		for k, v := range labels {
			out[prefix+"."+k] = v
		}
	}
	return out
}

// Translate looks key up in locale, then in the default locale, and returns
// the key itself when neither has it.
func Translate(locale, key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if labels, ok := locales[locale]; ok {
		if val, ok := labels[key]; ok {
			return val
		}
	}

	if locale != DefaultLocale {
		if labels, ok := locales[DefaultLocale]; ok {
			if val, ok := labels[key]; ok {
				return val
			}
		}
	}

	return key
}

// Label is Translate for a section-qualified value, e.g. Label("en", "donation", "plasma").
// An untranslated value is returned as is.
func Label(locale, section, value string) string {
	key := section + "." + value
	if out := Translate(locale, key); out != key {
		return out
	}
	return value
}
