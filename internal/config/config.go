// Package config loads a playback profile from YAML, the environment and
// command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/oukeidos/tsov/internal/apperrors"
	"github.com/oukeidos/tsov/internal/hotkey"
	"github.com/oukeidos/tsov/internal/subtitle"
)

// Presenter types.
const (
	PresenterOverlay  = "overlay"
	PresenterTerminal = "terminal"
)

// ModifierNone disables the modifier gate.
const ModifierNone = "none"

// EnvConfig names the environment variable holding the profile path.
const EnvConfig = "TSOV_CONFIG"

// Profile is one playback session's settings.
type Profile struct {
	Subtitle      string          `yaml:"subtitle" validate:"required"`
	Start         string          `yaml:"start" default:"0"`
	FirstTime     string          `yaml:"first_time"`
	LastTime      string          `yaml:"last_time"`
	ScalingFactor float64         `yaml:"scaling_factor" default:"1" validate:"gt=0"`
	Playback      PlaybackConfig  `yaml:"playback"`
	Hotkeys       HotkeysConfig   `yaml:"hotkeys"`
	Presenter     PresenterConfig `yaml:"presenter"`
}

// PlaybackConfig tunes the display loop.
type PlaybackConfig struct {
	Tick   time.Duration `yaml:"tick" default:"10ms" validate:"gt=0,lte=10ms"`
	LeadIn time.Duration `yaml:"lead_in" default:"2ms" validate:"gte=0,lte=1s"`
}

// HotkeysConfig selects the key that gates commands.
type HotkeysConfig struct {
	Modifier string `yaml:"modifier" default:"alt"`
}

// PresenterConfig selects where subtitles are drawn. Settings are decoded by
// the chosen presenter with DecodeSettings.
type PresenterConfig struct {
	Type     string         `yaml:"type" default:"overlay" validate:"oneof=overlay terminal"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Timing is the resolved time arguments of a profile.
type Timing struct {
	Start     time.Duration
	FirstTime *time.Duration
	LastTime  *time.Duration
}

// Load reads the profile at path (optional), fills fields the file left
// empty from TSOV_* variables, applies override, then sets defaults and
// validates. Command-line flags are expected to arrive through override.
func Load(path string, override func(*Profile)) (*Profile, error) {
	var p Profile
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.InvalidConfig("failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, apperrors.InvalidConfig("failed to parse config file", err)
		}
	}

	if err := p.fillFromEnv(); err != nil {
		return nil, err
	}
	if override != nil {
		override(&p)
	}

	if err := defaults.Set(&p); err != nil {
		return nil, apperrors.InvalidConfig("failed to set defaults", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// fillFromEnv sets fields that are still empty from the environment, so a
// profile value wins over an exported variable.
func (p *Profile) fillFromEnv() error {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&p.Subtitle, "TSOV_SUBTITLE")
	fill(&p.Start, "TSOV_START")
	fill(&p.FirstTime, "TSOV_FIRST_TIME")
	fill(&p.LastTime, "TSOV_LAST_TIME")
	fill(&p.Hotkeys.Modifier, "TSOV_MODIFIER")
	fill(&p.Presenter.Type, "TSOV_PRESENTER")

	if v := os.Getenv("TSOV_SCALING_FACTOR"); v != "" && p.ScalingFactor == 0 {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return apperrors.InvalidConfig("TSOV_SCALING_FACTOR is not a number", err)
		}
		p.ScalingFactor = f
	}
	return nil
}

// Validate checks struct tags and the time and modifier fields.
func (p *Profile) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return apperrors.InvalidConfig("config validation failed", err)
	}
	if _, err := p.Timing(); err != nil {
		return err
	}
	if p.Hotkeys.Modifier != ModifierNone {
		if _, err := hotkey.ParseModifier(p.Hotkeys.Modifier); err != nil {
			return apperrors.InvalidConfig("invalid hotkeys.modifier", err)
		}
	}
	return nil
}

// Timing parses the start, first_time and last_time fields.
func (p *Profile) Timing() (Timing, error) {
	var t Timing
	start, err := subtitle.ParseOffset(p.Start)
	if err != nil {
		return t, apperrors.InvalidConfig("invalid start", err)
	}
	t.Start = start

	if t.FirstTime, err = optionalOffset(p.FirstTime); err != nil {
		return t, apperrors.InvalidConfig("invalid first_time", err)
	}
	if t.LastTime, err = optionalOffset(p.LastTime); err != nil {
		return t, apperrors.InvalidConfig("invalid last_time", err)
	}
	return t, nil
}

func optionalOffset(s string) (*time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := subtitle.ParseOffset(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// RequireModifier reports whether commands need the modifier held.
func (p *Profile) RequireModifier() bool {
	return p.Hotkeys.Modifier != ModifierNone
}

// DecodeSettings decodes a presenter settings map into out, a pointer to a
// struct tagged with mapstructure, default and validate. Duration fields
// accept strings such as "1s".
func DecodeSettings(settings map[string]any, out any) error {
	if reflect.ValueOf(out).Kind() != reflect.Pointer {
		return fmt.Errorf("DecodeSettings: out must be a pointer, got %T", out)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(settings); err != nil {
		return apperrors.InvalidConfig("failed to decode presenter settings", err)
	}
	if err := defaults.Set(out); err != nil {
		return apperrors.InvalidConfig("failed to set presenter defaults", err)
	}
	if err := validator.New().Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperrors.InvalidConfig(fmt.Sprintf("invalid presenter setting %s", verrs[0].Field()), err)
		}
		return apperrors.InvalidConfig("invalid presenter settings", err)
	}
	return nil
}
