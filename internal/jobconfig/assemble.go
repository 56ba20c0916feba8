package jobconfig

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// Sentinel configuration problems, usable with errors.Is.
var (
	ErrUnknownMode       = errors.New("unknown compression mode")
	ErrUnknownPreset     = errors.New("unknown quality preset")
	ErrInvalidQuality    = errors.New("custom quality must be a whole number between 0 and 100")
	ErrMissingTargetSize = errors.New("target size is required")
	ErrInvalidTargetSize = errors.New("target size must be a positive number")
	ErrUnknownTargetUnit = errors.New("unknown target size unit")
)

// ConfigurationError blocks submission; no request is sent.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// FormSnapshot is the typed state of the presentation layer's controls at
// submit time. String fields hold raw user input.
type FormSnapshot struct {
	Mode          string
	QualityLevel  string
	CustomQuality string
	TargetSize    string
	TargetUnit    string

	AIOptimization     bool
	RemoveMetadata     bool
	LosslessMode       bool
	PasswordProtection bool
	Password           string
}

// AdvancedOptions are the job-wide toggles.
type AdvancedOptions struct {
	AIOptimization     bool
	RemoveMetadata     bool
	LosslessMode       bool
	PasswordProtection bool

	// Password is set only when PasswordProtection is on and a non-blank value was supplied.
	Password *string
}

// JobConfiguration describes one submission. It is built once per submit and
// not retained across jobs.
type JobConfiguration struct {
	Files   []filehandler.CandidateFile
	Mode    Mode
	Options AdvancedOptions
}

// Field is one non-file multipart field.
type Field struct {
	Name  string
	Value string
}

// Assemble validates the snapshot and builds the job configuration for files.
// It only reads its inputs.
func Assemble(form FormSnapshot, files []filehandler.CandidateFile) (JobConfiguration, error) {
	mode, err := assembleMode(form)
	if err != nil {
		return JobConfiguration{}, err
	}

	opts := AdvancedOptions{
		AIOptimization:     form.AIOptimization,
		RemoveMetadata:     form.RemoveMetadata,
		LosslessMode:       form.LosslessMode,
		PasswordProtection: form.PasswordProtection,
	}
	if form.PasswordProtection && strings.TrimSpace(form.Password) != "" {
		password := form.Password
		opts.Password = &password
	}

	return JobConfiguration{
		Files:   append([]filehandler.CandidateFile(nil), files...),
		Mode:    mode,
		Options: opts,
	}, nil
}

func assembleMode(form FormSnapshot) (Mode, error) {
	switch strings.TrimSpace(form.Mode) {
	case ModeQualityBased, "":
		return assembleQuality(form)
	case ModeTargetSize:
		return assembleTarget(form)
	default:
		return nil, &ConfigurationError{Field: "compression_mode", Err: fmt.Errorf("%w: %q", ErrUnknownMode, form.Mode)}
	}
}

func assembleQuality(form FormSnapshot) (Mode, error) {
	level := strings.ToLower(strings.TrimSpace(form.QualityLevel))
	if level == "" {
		level = string(PresetMedium)
	}

	if level != presetCustom {
		if !knownPresets[Preset(level)] {
			return nil, &ConfigurationError{Field: "quality_level", Err: fmt.Errorf("%w: %q", ErrUnknownPreset, form.QualityLevel)}
		}
		return QualityBased{Preset: Preset(level)}, nil
	}

	raw := strings.TrimSpace(form.CustomQuality)
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &ConfigurationError{Field: "custom_quality", Err: fmt.Errorf("%w (got %q)", ErrInvalidQuality, raw)}
	}
	if clamped := min(max(value, 0), 100); clamped != value {
		log.Warn().Int("requested", value).Int("clamped", clamped).Msg("Custom quality out of range, clamping")
		value = clamped
	}
	return QualityBased{Custom: &value}, nil
}

func assembleTarget(form FormSnapshot) (Mode, error) {
	raw := strings.TrimSpace(form.TargetSize)
	if raw == "" {
		return nil, &ConfigurationError{Field: "target_size", Err: ErrMissingTargetSize}
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return nil, &ConfigurationError{Field: "target_size", Err: fmt.Errorf("%w (got %q)", ErrInvalidTargetSize, raw)}
	}

	unit := SizeUnit(strings.ToUpper(strings.TrimSpace(form.TargetUnit)))
	switch unit {
	case "":
		unit = UnitMB
	case UnitKB, UnitMB, UnitGB:
	default:
		return nil, &ConfigurationError{Field: "target_unit", Err: fmt.Errorf("%w: %q", ErrUnknownTargetUnit, form.TargetUnit)}
	}

	return TargetSize{Value: value, Unit: unit}, nil
}

// Fields renders every non-file request field in a stable order. Boolean flags
// are always present so the service can tell "false" from "unset".
func (c JobConfiguration) Fields() []Field {
	fields := []Field{
		{Name: "ai_optimization", Value: strconv.FormatBool(c.Options.AIOptimization)},
		{Name: "remove_metadata", Value: strconv.FormatBool(c.Options.RemoveMetadata)},
		{Name: "lossless_mode", Value: strconv.FormatBool(c.Options.LosslessMode)},
		{Name: "password_protection", Value: strconv.FormatBool(c.Options.PasswordProtection)},
	}
	if c.Options.Password != nil {
		fields = append(fields, Field{Name: "password", Value: *c.Options.Password})
	}
	if c.Mode != nil {
		fields = append(fields, Field{Name: "compression_mode", Value: c.Mode.Name()})
		fields = append(fields, c.Mode.fields()...)
	}
	return fields
}
