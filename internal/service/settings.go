package service

import (
	"context"
	"strconv"
	"strings"

	"blogPlatform/internal/apperr"
	"blogPlatform/repository"
)

// Known system configuration keys.
const (
	SettingBannedWords         = "moderation.banned_words"
	SettingAutoHideThreshold   = "moderation.auto_hide_threshold"
	SettingMaxTitleLength      = "blog.max_title_length"
	SettingRegistrationEnabled = "registration.enabled"
)

// SettingType is the value type a known setting must parse as.
type SettingType string

const (
	SettingBool SettingType = "bool"
	SettingInt  SettingType = "int"
	SettingList SettingType = "list"
)

type settingSpec struct {
	Type     SettingType
	Min, Max int
}

var knownSettings = map[string]settingSpec{
	SettingBannedWords:         {Type: SettingList},
	SettingAutoHideThreshold:   {Type: SettingInt, Min: 0, Max: 1000},
	SettingMaxTitleLength:      {Type: SettingInt, Min: 10, Max: 1000},
	SettingRegistrationEnabled: {Type: SettingBool},
}

// IsKnownSetting reports whether key is one of the typed settings.
func IsKnownSetting(key string) bool {
	_, ok := knownSettings[key]
	return ok
}

// NormalizeSetting validates value for key and returns its canonical text.
// Unknown keys are rejected.
func NormalizeSetting(key, value string) (string, error) {
	spec, ok := knownSettings[key]
	if !ok {
		return "", apperr.NotFound("unknown setting %q", key)
	}
	value = strings.TrimSpace(value)
	switch spec.Type {
	case SettingBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", apperr.Invalid("%s must be true or false", key)
		}
		return strconv.FormatBool(b), nil
	case SettingInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", apperr.Invalid("%s must be an integer", key)
		}
		if n < spec.Min || n > spec.Max {
			return "", apperr.Invalid("%s must be between %d and %d", key, spec.Min, spec.Max)
		}
		return strconv.Itoa(n), nil
	default:
		return strings.Join(SplitList(value), ","), nil
	}
}

// SplitList parses a comma separated setting into trimmed, lowercased, de-duplicated entries.
func SplitList(value string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Settings reads typed values, falling back to a default when a row is missing or malformed.
type Settings struct {
	repo repository.SettingRepositoryI
}

func NewSettings(repo repository.SettingRepositoryI) *Settings {
	return &Settings{repo: repo}
}

func (s *Settings) raw(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.repo == nil {
		return "", false, nil
	}
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, apperr.Wrap(err, "read setting %s", key)
	}
	if row == nil {
		return "", false, nil
	}
	return row.Value, true, nil
}

func (s *Settings) Bool(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := s.raw(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	b, perr := strconv.ParseBool(strings.TrimSpace(v))
	if perr != nil {
		return def, nil
	}
	return b, nil
}

func (s *Settings) Int(ctx context.Context, key string, def int) (int, error) {
	v, ok, err := s.raw(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	n, perr := strconv.Atoi(strings.TrimSpace(v))
	if perr != nil {
		return def, nil
	}
	return n, nil
}

func (s *Settings) List(ctx context.Context, key string) ([]string, error) {
	v, _, err := s.raw(ctx, key)
	if err != nil {
		return nil, err
	}
	return SplitList(v), nil
}
