// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n provides localized user-facing messages for Ringwork. It uses
// the go-i18n library to load the embedded YAML translation files.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// localeFS embeds the YAML translation files from the 'locales' directory.
//
//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu         sync.RWMutex
	bundle     *i18n.Bundle
	localizer  *i18n.Localizer
	lang       string
	localizers = map[string]*i18n.Localizer{}
)

// Init loads every embedded locale and selects lang as the default language.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	if bundle == nil {
		bundle = loadBundle()
	}
	lang = l
	localizer = i18n.NewLocalizer(bundle, l)
}

func loadBundle() *i18n.Bundle {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		_, _ = b.ParseMessageFileBytes(data, f.Name())
	}
	return b
}

// SetLang changes the default language.
func SetLang(l string) {
	Init(l)
}

// GetLang returns the default language.
func GetLang() string {
	mu.RLock()
	defer mu.RUnlock()
	return lang
}

// GetAvailableLocales returns the language tags that have a translation file.
func GetAvailableLocales() []string {
	files, _ := fs.ReadDir(localeFS, "locales")
	out := make([]string, 0, len(files))
	for _, f := range files {
		tag := strings.TrimSuffix(f.Name(), ".yaml")
		out = append(out, strings.TrimPrefix(tag, "active."))
	}
	return out
}

// T translates messageID into the default language. Extra args are applied
// to the translation with fmt.Sprintf. Unknown IDs are returned unchanged.
func T(messageID string, args ...any) string {
	mu.RLock()
	l := localizer
	mu.RUnlock()
	if l == nil {
		Init("en")
		mu.RLock()
		l = localizer
		mu.RUnlock()
	}
	return localize(l, messageID, args...)
}

// TL translates messageID for the given Accept-Language style preferences,
// falling back to the default language.
func TL(langs []string, messageID string, args ...any) string {
	if len(langs) == 0 {
		return T(messageID, args...)
	}
	if GetLang() == "" {
		Init("en")
	}
	key := strings.Join(langs, ",")
	mu.Lock()
	l, ok := localizers[key]
	if !ok {
		l = i18n.NewLocalizer(bundle, append(langs, lang)...)
		localizers[key] = l
	}
	mu.Unlock()
	return localize(l, messageID, args...)
}

func localize(l *i18n.Localizer, messageID string, args ...any) string {
	msg, _ := l.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if msg == "" {
		// Missing translation: fall back to the ID so the gap is visible.
		msg = messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
