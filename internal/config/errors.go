package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrConfigMissing 必填配置项缺失
	ErrConfigMissing = errors.New("configuration key missing")
	// ErrConfigInvalidFormat 配置项格式错误
	ErrConfigInvalidFormat = errors.New("configuration value has invalid format")
)

// KeyError 单个配置项的错误，记录键名、期望类型和原始值
type KeyError struct {
	Key      string
	Expected string
	Value    string
	Err      error
}

func (e *KeyError) Error() string {
	if errors.Is(e.Err, ErrConfigMissing) {
		return fmt.Sprintf("%s is not set in configuration", e.Key)
	}
	return fmt.Sprintf("%s is not a valid %s (value: %q)", e.Key, e.Expected, e.Value)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

func missing(key, expected string) error {
	return &KeyError{Key: key, Expected: expected, Err: ErrConfigMissing}
}

func invalid(key, expected, value string) error {
	return &KeyError{Key: key, Expected: expected, Value: value, Err: ErrConfigInvalidFormat}
}

func requireString(key, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", missing(key, "string")
	}
	return raw, nil
}

func requireUint16(key, raw string) (uint16, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, missing(key, "uint16")
	}
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil || n == 0 {
		return 0, invalid(key, "uint16", raw)
	}
	return uint16(n), nil
}

func requireDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, missing(key, "duration")
	}
	d, ok := parseDuration(raw)
	if !ok || d <= 0 {
		return 0, invalid(key, "duration", raw)
	}
	return d, nil
}

func requireRoundTypes(key, raw string) (RoundTypes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", missing(key, "RoundTypes")
	}
	rt, err := ParseRoundTypes(raw)
	if err != nil {
		return "", invalid(key, "RoundTypes", raw)
	}
	return rt, nil
}

// parseDuration 支持 Go 格式（30s）和 hh:mm:ss 格式
func parseDuration(raw string) (time.Duration, bool) {
	if d, err := time.ParseDuration(raw); err == nil {
		return d, true
	}

	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return 0, false
	}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return 0, false
		}
		if i > 0 && n >= 60 {
			return 0, false
		}
		total += time.Duration(n) * units[i]
	}
	return total, true
}
