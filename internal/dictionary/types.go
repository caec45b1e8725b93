// Package dictionary holds the English/Bangla word list, user-submitted
// words, offline packages and user profiles.
package dictionary

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned for an unknown id
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned for input that fails validation
	ErrInvalid = errors.New("invalid input")

	// ErrConflict is returned when a unique field is already taken
	ErrConflict = errors.New("conflict")
)

// Language codes
const (
	LangEnglish = "en"
	LangBangla  = "bn"
)

// Themes a user may pick
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Package types
const (
	PackageFree        = "free"
	PackagePremium     = "premium"
	PackageSpecialized = "specialized"
)

// SearchLimit caps the number of search results
const SearchLimit = 10

// ValidLanguage reports whether lang is a supported language code
func ValidLanguage(lang string) bool {
	return lang == LangEnglish || lang == LangBangla
}

// Example is a usage sentence in both languages
type Example struct {
	English string `json:"english"`
	Bangla  string `json:"bangla"`
}

// Entry is one dictionary headword
type Entry struct {
	ID           string    `json:"id"`
	Word         string    `json:"word"`
	Language     string    `json:"language"`
	Translation  string    `json:"translation"`
	PartOfSpeech string    `json:"partOfSpeech,omitempty"`
	Definition   string    `json:"definition,omitempty"`
	Synonyms     []string  `json:"synonyms"`
	Antonyms     []string  `json:"antonyms"`
	Examples     []Example `json:"examples"`
}

// CustomWord is a word a user added themselves
type CustomWord struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	EnglishWord       string    `json:"englishWord"`
	BanglaTranslation string    `json:"banglaTranslation"`
	Definition        string    `json:"definition,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewCustomWord is the create request for a CustomWord
type NewCustomWord struct {
	UserID            string `json:"userId"`
	EnglishWord       string `json:"englishWord"`
	BanglaTranslation string `json:"banglaTranslation"`
	Definition        string `json:"definition,omitempty"`
}

// Validate checks required fields
func (n NewCustomWord) Validate() error {
	var missing []string
	if strings.TrimSpace(n.UserID) == "" {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(n.EnglishWord) == "" {
		missing = append(missing, "englishWord")
	}
	if strings.TrimSpace(n.BanglaTranslation) == "" {
		missing = append(missing, "banglaTranslation")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	return nil
}

// CustomWordPatch is a partial update; nil fields are unchanged
type CustomWordPatch struct {
	EnglishWord       *string `json:"englishWord,omitempty"`
	BanglaTranslation *string `json:"banglaTranslation,omitempty"`
	Definition        *string `json:"definition,omitempty"`
}

// Package is a downloadable offline word pack
type Package struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Size         string     `json:"size"`
	Type         string     `json:"type"`
	IsDownloaded bool       `json:"isDownloaded"`
	DownloadedAt *time.Time `json:"downloadedAt"`
}

// PackagePatch is a partial update; nil fields are unchanged
type PackagePatch struct {
	IsDownloaded *bool `json:"isDownloaded,omitempty"`
}

// User is a profile with display preferences
type User struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Theme           string `json:"theme"`
	CurrentLanguage string `json:"currentLanguage"`
}

// NewUser is the create request for a User; empty preferences get defaults
type NewUser struct {
	Username        string `json:"username"`
	Theme           string `json:"theme,omitempty"`
	CurrentLanguage string `json:"currentLanguage,omitempty"`
}

// UserPatch is a partial update; nil fields are unchanged
type UserPatch struct {
	Username        *string `json:"username,omitempty"`
	Theme           *string `json:"theme,omitempty"`
	CurrentLanguage *string `json:"currentLanguage,omitempty"`
}

func validTheme(theme string) bool {
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

func validateProfile(username, theme, lang string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalid)
	}
	if !validTheme(theme) {
		return fmt.Errorf("%w: theme %q", ErrInvalid, theme)
	}
	if !ValidLanguage(lang) {
		return fmt.Errorf("%w: language %q", ErrInvalid, lang)
	}
	return nil
}
