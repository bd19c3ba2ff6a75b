package volcano

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// verifyTolerance is how far the read-back target may be from the request.
const verifyTolerance = 0.5

// Switch is a requested heater or pump state.
type Switch int

const (
	// Keep leaves the channel unchanged.
	Keep Switch = iota
	On
	Off
)

func (s Switch) String() string {
	switch s {
	case On:
		return "on"
	case Off:
		return "off"
	default:
		return "keep"
	}
}

// SwitchOf converts a bool to On or Off.
func SwitchOf(on bool) Switch {
	if on {
		return On
	}
	return Off
}

// triggerPayload is written to trigger characteristics; the appliance
// ignores its value.
var triggerPayload = []byte{0x00}

// decodeUint reads a little-endian unsigned integer as wide as data.
func decodeUint(data []byte) (uint64, error) {
	if len(data) == 0 || len(data) > 8 {
		return 0, fmt.Errorf("volcano: unexpected value length %d", len(data))
	}
	var v uint64
	for i := len(data) - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v, nil
}

// decodeTemp converts tenths of a degree to °C.
func decodeTemp(data []byte) (float64, error) {
	v, err := decodeUint(data)
	if err != nil {
		return 0, err
	}
	return float64(v) / 10.0, nil
}

// encodeTemp converts °C to the 4-byte tenths representation.
func encodeTemp(celsius float64) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(math.Round(celsius*10.0)))
	return buf
}

func (s *Session) readTemp(ctx context.Context, h handle) (float64, error) {
	data, err := s.read(ctx, h)
	if err != nil {
		return 0, err
	}
	return decodeTemp(data)
}

func (s *Session) readWord(ctx context.Context, h handle) (uint64, error) {
	data, err := s.read(ctx, h)
	if err != nil {
		return 0, err
	}
	return decodeUint(data)
}

// ReadCurrentTemp returns the measured heater temperature in °C.
func (s *Session) ReadCurrentTemp(ctx context.Context) (float64, error) {
	t, err := s.readTemp(ctx, hCurrentTemp)
	if err != nil {
		return 0, fmt.Errorf("volcano: read current temp: %w", err)
	}
	return t, nil
}

// ReadTargetTemp returns the configured set point in °C.
func (s *Session) ReadTargetTemp(ctx context.Context) (float64, error) {
	t, err := s.readTemp(ctx, hTargetTemp)
	if err != nil {
		return 0, fmt.Errorf("volcano: read target temp: %w", err)
	}
	return t, nil
}

// SetTargetTemp writes the set point and reads it back until it matches
// within half a degree, up to VerifyAttempts write+verify cycles. Failed
// cycles are spaced TriggerDelay apart.
func (s *Session) SetTargetTemp(ctx context.Context, celsius float64) error {
	payload := encodeTemp(celsius)

	var lastErr error
	for attempt := 1; attempt <= s.opts.VerifyAttempts; attempt++ {
		if attempt > 1 {
			if err := Sleep(ctx, s.opts.TriggerDelay); err != nil {
				return err
			}
		}

		if err := s.write(ctx, hTargetTemp, payload); err != nil {
			if errors.Is(err, ErrNotDiscovered) || ctx.Err() != nil {
				return err
			}
			lastErr = err
			s.log.Warn("[VOLCANO] target temp write failed", "attempt", attempt, "error", err)
			continue
		}

		got, err := s.readTemp(ctx, hTargetTemp)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			s.log.Warn("[VOLCANO] target temp read-back failed", "attempt", attempt, "error", err)
			continue
		}
		if math.Abs(got-celsius) < verifyTolerance {
			s.log.Debug("[VOLCANO] target temp set", "celsius", celsius, "attempt", attempt)
			return nil
		}
		lastErr = fmt.Errorf("read back %.1f, want %.1f", got, celsius)
		s.log.Warn("[VOLCANO] target temp mismatch", "attempt", attempt, "got", got, "want", celsius)
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrVerificationFailed, s.opts.VerifyAttempts, lastErr)
}

// ReadUnitIsFahrenheit reports whether the appliance displays Fahrenheit.
func (s *Session) ReadUnitIsFahrenheit(ctx context.Context) (bool, error) {
	w, err := s.readWord(ctx, hUnit)
	if err != nil {
		return false, fmt.Errorf("volcano: read unit: %w", err)
	}
	return w&fahrenheitBit != 0, nil
}

// CheckCelsius fails with ErrFahrenheit unless the appliance uses Celsius.
func (s *Session) CheckCelsius(ctx context.Context) error {
	f, err := s.ReadUnitIsFahrenheit(ctx)
	if err != nil {
		return err
	}
	if f {
		return ErrFahrenheit
	}
	return nil
}

// ReadState returns whether heater and pump are running.
func (s *Session) ReadState(ctx context.Context) (heater, pump bool, err error) {
	w, err := s.readWord(ctx, hStatus)
	if err != nil {
		return false, false, fmt.Errorf("volcano: read state: %w", err)
	}
	return w&heaterBit != 0, w&pumpBit != 0, nil
}

// SetState switches heater and pump. Each channel is asserted by writing to
// its on or off trigger characteristic; Keep leaves the channel alone.
func (s *Session) SetState(ctx context.Context, heater, pump Switch) error {
	if err := s.trigger(ctx, "heater", heater, hHeaterOn, hHeaterOff); err != nil {
		return err
	}
	return s.trigger(ctx, "pump", pump, hPumpOn, hPumpOff)
}

// AllOff turns heater and pump off.
func (s *Session) AllOff(ctx context.Context) error {
	return s.SetState(ctx, Off, Off)
}

func (s *Session) trigger(ctx context.Context, name string, sw Switch, on, off handle) error {
	var h handle
	switch sw {
	case On:
		h = on
	case Off:
		h = off
	default:
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.TriggerAttempts; attempt++ {
		err := s.write(ctx, h, triggerPayload)
		if err == nil {
			s.log.Debug("[VOLCANO] trigger written", "channel", name, "state", sw)
			return nil
		}
		if errors.Is(err, ErrNotDiscovered) || ctx.Err() != nil {
			return fmt.Errorf("volcano: set %s %s: %w", name, sw, err)
		}
		lastErr = err
		s.log.Warn("[VOLCANO] trigger write failed", "channel", name, "attempt", attempt, "error", err)
		if attempt < s.opts.TriggerAttempts {
			if err := Sleep(ctx, s.opts.TriggerDelay); err != nil {
				return fmt.Errorf("volcano: set %s %s: %w", name, sw, err)
			}
		}
	}
	return fmt.Errorf("%w: set %s %s after %d attempts: %v", ErrTriggerFailed, name, sw, s.opts.TriggerAttempts, lastErr)
}
