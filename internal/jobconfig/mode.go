// Package jobconfig assembles the immutable job configuration from a typed
// snapshot of the presentation layer's form controls.
package jobconfig

import (
	"strconv"
)

// Mode wire values for the compression_mode field.
const (
	ModeQualityBased = "quality_based"
	ModeTargetSize   = "target_size"
)

// Preset is a named quality level.
type Preset string

const (
	PresetLow     Preset = "low"
	PresetMedium  Preset = "medium"
	PresetHigh    Preset = "high"
	PresetMaximum Preset = "maximum"

	// presetCustom selects a numeric custom level instead of a preset.
	presetCustom = "custom"
)

var knownPresets = map[Preset]bool{
	PresetLow:     true,
	PresetMedium:  true,
	PresetHigh:    true,
	PresetMaximum: true,
}

// SizeUnit is the unit of a target size.
type SizeUnit string

const (
	UnitKB SizeUnit = "KB"
	UnitMB SizeUnit = "MB"
	UnitGB SizeUnit = "GB"
)

// Mode is the compression mode; exactly one of QualityBased or TargetSize.
type Mode interface {
	// Name returns the compression_mode wire value.
	Name() string
	// fields returns the mode-specific request fields.
	fields() []Field
}

// QualityBased compresses to a quality level: a preset, or a custom value in [0,100]
// when Custom is non-nil.
type QualityBased struct {
	Preset Preset
	Custom *int
}

// Name implements Mode.
func (QualityBased) Name() string { return ModeQualityBased }

func (q QualityBased) fields() []Field {
	if q.Custom != nil {
		return []Field{
			{Name: "quality_level", Value: presetCustom},
			{Name: "custom_quality", Value: strconv.Itoa(*q.Custom)},
		}
	}
	return []Field{{Name: "quality_level", Value: string(q.Preset)}}
}

// TargetSize compresses toward an output size.
type TargetSize struct {
	Value float64
	Unit  SizeUnit
}

// Name implements Mode.
func (TargetSize) Name() string { return ModeTargetSize }

func (t TargetSize) fields() []Field {
	return []Field{
		{Name: "target_size", Value: strconv.FormatFloat(t.Value, 'f', -1, 64)},
		{Name: "target_unit", Value: string(t.Unit)},
	}
}

// Bytes returns the target in bytes using binary multiples.
func (t TargetSize) Bytes() int64 {
	multiplier := float64(1 << 20)
	switch t.Unit {
	case UnitKB:
		multiplier = 1 << 10
	case UnitGB:
		multiplier = 1 << 30
	}
	return int64(t.Value * multiplier)
}
