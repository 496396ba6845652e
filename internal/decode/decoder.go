package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// Failure reasons, also used as metric labels.
var (
	ErrMalformed     = errors.New("malformed frame")
	ErrMissingField  = errors.New("missing field")
	ErrUnknownSender = errors.New("unknown sender")
)

// DecodeError is the only error Decode returns.
type DecodeError struct {
	Reason error  // one of ErrMalformed, ErrMissingField, ErrUnknownSender
	Sender string // sender identifier when it could be read
	Detail string
}

func (e *DecodeError) Error() string {
	msg := e.Reason.Error()
	if e.Sender != "" {
		msg += " " + strconv.Quote(e.Sender)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Reason
}

// Kind returns a short label for the failure reason.
func (e *DecodeError) Kind() string {
	switch e.Reason {
	case ErrUnknownSender:
		return "unknown_sender"
	case ErrMissingField:
		return "missing_field"
	}
	return "malformed"
}

// Decoder turns coordinator lines into readings from known sensors.
type Decoder struct {
	roles map[string]logic.Role
	now   func() time.Time
}

// NewDecoder creates a decoder accepting the given sensor identities.
// Identities are compared exactly; 0x41 and 0x61 are different bytes.
func NewDecoder(ids map[logic.Role]string, now func() time.Time) *Decoder {
	roles := make(map[string]logic.Role, len(ids))
	for role, id := range ids {
		roles[id] = role
	}
	if now == nil {
		now = time.Now
	}
	return &Decoder{roles: roles, now: now}
}

type frame struct {
	Sender  *string       `json:"sender_eui64"`
	Payload *framePayload `json:"payload"`
}

type framePayload struct {
	Temperature *number `json:"Temperature"`
	Humidity    *number `json:"Humidity"`
}

// number accepts a JSON number or a string holding one.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = number(f)
	return nil
}

// Decode returns a reading or a *DecodeError. It never panics.
func (d *Decoder) Decode(line []byte) (r logic.Reading, err error) {
	defer func() {
		if p := recover(); p != nil {
			r = logic.Reading{}
			err = &DecodeError{Reason: ErrMalformed, Detail: fmt.Sprintf("panic: %v", p)}
		}
	}()

	normalized, err := Normalize(string(line))
	if err != nil {
		return logic.Reading{}, &DecodeError{Reason: ErrMalformed, Detail: err.Error()}
	}

	var f frame
	if err := json.Unmarshal([]byte(normalized), &f); err != nil {
		return logic.Reading{}, &DecodeError{Reason: ErrMalformed, Detail: err.Error()}
	}

	if f.Sender == nil {
		return logic.Reading{}, &DecodeError{Reason: ErrMissingField, Detail: "sender_eui64"}
	}
	sender := strings.TrimSpace(*f.Sender)
	role, ok := d.roles[sender]
	if !ok {
		return logic.Reading{}, &DecodeError{Reason: ErrUnknownSender, Sender: sender}
	}

	if f.Payload == nil {
		return logic.Reading{}, &DecodeError{Reason: ErrMissingField, Sender: sender, Detail: "payload"}
	}
	if f.Payload.Temperature == nil {
		return logic.Reading{}, &DecodeError{Reason: ErrMissingField, Sender: sender, Detail: "payload.Temperature"}
	}
	if f.Payload.Humidity == nil {
		return logic.Reading{}, &DecodeError{Reason: ErrMissingField, Sender: sender, Detail: "payload.Humidity"}
	}

	return logic.Reading{
		Sensor:      role,
		Temperature: float64(*f.Payload.Temperature),
		Humidity:    float64(*f.Payload.Humidity),
		ReceivedAt:  d.now(),
	}, nil
}
