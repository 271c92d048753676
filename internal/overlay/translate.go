// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package overlay

// Translator resolves a label key (and a language tag) to display text. A
// missing translation falls back to English (§4.5.5).
type Translator interface {
	Translate(language, key string) string
}

// Table is a simple in-memory Translator: language code -> key -> text.
type Table map[string]map[string]string

func (t Table) Translate(language, key string) string {
	if m, ok := t[language]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := t["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Dashboard label keys.
const (
	KeyUnitMph    = "unit.mph"
	KeyUnitKmh    = "unit.kmh"
	KeyGearPark   = "gear.park"
	KeyGearDrive  = "gear.drive"
	KeyGearRev    = "gear.reverse"
	KeyGearNeut   = "gear.neutral"
	KeyAPManual   = "autopilot.manual"
	KeyAPSelf     = "autopilot.self_driving"
	KeyAPAutost   = "autopilot.autosteer"
	KeyAPTACC     = "autopilot.tacc"
	KeyNoTele     = "notice.no_telemetry"
)

// DefaultTable is the English-complete translation table this package ships
// with. Callers may extend it or supply their own Translator.
var DefaultTable = Table{
	"en": {
		KeyUnitMph:  "MPH",
		KeyUnitKmh:  "KM/H",
		KeyGearPark: "P",
		KeyGearDrive: "D",
		KeyGearRev:  "R",
		KeyGearNeut: "N",
		KeyAPManual: "Manual",
		KeyAPSelf:   "Full Self-Driving",
		KeyAPAutost: "Autosteer",
		KeyAPTACC:   "TACC",
		KeyNoTele:   "No telemetry available",
	},
	"es": {
		KeyUnitMph:  "MPH",
		KeyUnitKmh:  "KM/H",
		KeyGearPark: "P",
		KeyGearDrive: "D",
		KeyGearRev:  "R",
		KeyGearNeut: "N",
		KeyAPManual: "Manual",
		KeyAPSelf:   "Autoconduccion completa",
		KeyAPAutost: "Autoguiado",
		KeyAPTACC:   "Control de crucero",
		KeyNoTele:   "Telemetria no disponible",
	},
}
