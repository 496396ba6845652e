package logic

import (
	"strings"
	"time"
)

// Label names one of the fixed relay combinations.
type Label string

const (
	LabelOff           Label = "Off"
	LabelPump          Label = "Pump"
	LabelFanLo         Label = "Fan Lo"
	LabelFanHi         Label = "Fan Hi"
	LabelFanLoWithPump Label = "Fan Lo (w/Pump)"
	LabelFanHiWithPump Label = "Fan Hi (w/Pump)"
)

// Labels lists the closed set of relay combinations.
var Labels = []Label{
	LabelOff,
	LabelPump,
	LabelFanLo,
	LabelFanHi,
	LabelFanLoWithPump,
	LabelFanHiWithPump,
}

var relayTable = map[Label]RelayState{
	LabelOff:           {Pump: false, Fan: false, Speed: false},
	LabelPump:          {Pump: true, Fan: false, Speed: false},
	LabelFanLo:         {Pump: false, Fan: true, Speed: false},
	LabelFanHi:         {Pump: false, Fan: true, Speed: true},
	LabelFanLoWithPump: {Pump: true, Fan: true, Speed: false},
	LabelFanHiWithPump: {Pump: true, Fan: true, Speed: true},
}

// Valid reports whether l is one of the six relay combinations.
func (l Label) Valid() bool {
	_, ok := relayTable[l]
	return ok
}

// RelayFor returns the relay levels for a label.
// Unknown labels return RelayOff and false.
func RelayFor(l Label) (RelayState, bool) {
	rs, ok := relayTable[l]
	if !ok {
		return RelayOff, false
	}
	return rs, true
}

// LabelFor is the inverse of RelayFor.
func LabelFor(rs RelayState) Label {
	for _, l := range Labels {
		if relayTable[l] == rs {
			return l
		}
	}
	// speed without fan has no meaning on the hardware
	return LabelOff
}

// Mode distinguishes operator-fixed settings from policy-driven ones.
type Mode string

const (
	ModeManual Mode = "Manual"
	ModeAuto   Mode = "Auto"
)

const autoPrefix = "Auto"

// Setting is one row of control intent.
// For ModeAuto, Label is the label last resolved by the policy and may be empty.
type Setting struct {
	Mode               Mode
	Label              Label
	DesiredTemperature float64
	RecordedAt         time.Time
}

// ParseSetting decodes the stored setting text ("Fan Lo", "Auto", "Auto Fan Hi").
// The label is not validated; unknown labels are caught when relays are resolved.
func ParseSetting(text string, desired float64, at time.Time) Setting {
	text = strings.TrimSpace(text)
	s := Setting{Mode: ModeManual, DesiredTemperature: desired, RecordedAt: at}
	if text == autoPrefix || strings.HasPrefix(text, autoPrefix+" ") {
		s.Mode = ModeAuto
		s.Label = Label(strings.TrimSpace(strings.TrimPrefix(text, autoPrefix)))
		return s
	}
	s.Label = Label(text)
	return s
}

// String returns the stored text form of the setting.
func (s Setting) String() string {
	if s.Mode != ModeAuto {
		return string(s.Label)
	}
	if s.Label == "" {
		return autoPrefix
	}
	return autoPrefix + " " + string(s.Label)
}

// IsAuto reports whether the policy drives this setting.
func (s Setting) IsAuto() bool {
	return s.Mode == ModeAuto
}

// NextAuto returns the setting to persist after the policy resolved a label.
// The boolean is false when the resolved label matches the stored one and
// nothing should be written.
func NextAuto(prev Setting, resolved Label) (Setting, bool) {
	if prev.Label == resolved {
		return prev, false
	}
	return Setting{
		Mode:               ModeAuto,
		Label:              resolved,
		DesiredTemperature: prev.DesiredTemperature,
	}, true
}
