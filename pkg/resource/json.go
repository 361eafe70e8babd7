package resource

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/docker/go-units"
)

// vectorWire is the on-the-wire shape: ram/disk may arrive as a human
// string ("1GiB") or a bare integer number of bytes; they are always
// emitted as integers.
type vectorWire struct {
	CPU  *float64        `json:"cpu_cores,omitempty"`
	RAM  json.RawMessage `json:"ram,omitempty"`
	Disk json.RawMessage `json:"disk,omitempty"`
}

// MarshalJSON emits cpu_cores as a number and ram/disk as plain integer
// byte counts, per §6's resource representation.
func (v Vector) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	if v.CPU != nil {
		out["cpu_cores"] = roundCPU(*v.CPU)
	}
	if v.RAM != nil {
		out["ram"] = *v.RAM
	}
	if v.Disk != nil {
		out["disk"] = *v.Disk
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts ram/disk as either a human-readable size string
// ("1GiB", "10GiB", "1TiB") or a bare integer byte count.
func (v *Vector) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Vector{}
		return nil
	}
	var wire vectorWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.CPU != nil {
		c := roundCPU(*wire.CPU)
		v.CPU = &c
	} else {
		v.CPU = nil
	}
	ram, err := parseByteField(wire.RAM)
	if err != nil {
		return fmt.Errorf("ram: %w", err)
	}
	v.RAM = ram
	disk, err := parseByteField(wire.Disk)
	if err != nil {
		return fmt.Errorf("disk: %w", err)
	}
	v.Disk = disk
	return nil
}

func parseByteField(raw json.RawMessage) (*int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		n, err := units.RAMInBytes(asString)
		if err != nil {
			return nil, err
		}
		return &n, nil
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err != nil {
		return nil, err
	}
	return &asNumber, nil
}
