// Package layers translates the persisted sound-layer list of a
// PlayableSound into its in-memory form and back.
package layers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Element-Re/crossblade/api"
)

// LayerFlag is the stored representation of one sound layer. Events are
// 1-2 element pairs, e.g. ["COMBATANT", "HOSTILE"] or ["CUSTOM"].
type LayerFlag struct {
	Src              string     `json:"src"`
	VolumeAdjustment float64    `json:"volumeAdjustment,omitempty"`
	Events           [][]string `json:"events"`
}

// Parse converts stored layer records into runtime sound layers. Malformed
// entries (missing src, empty events) are dropped; a layer must never exist
// without a source.
func Parse(flags []LayerFlag) []api.SoundLayer {
	parsed := make([]api.SoundLayer, 0, len(flags))
	for _, f := range flags {
		if f.Src == "" || len(f.Events) == 0 {
			slog.Debug("layers: dropping malformed entry", "src", f.Src, "events", len(f.Events))
			continue
		}
		layer := api.SoundLayer{
			Src:              f.Src,
			VolumeAdjustment: f.VolumeAdjustment,
		}
		if layer.VolumeAdjustment == 0 {
			layer.VolumeAdjustment = 1
		}
		for _, pair := range f.Events {
			if len(pair) == 0 {
				continue
			}
			layer.Events = append(layer.Events, api.NormalizeTag(pair))
		}
		parsed = append(parsed, layer)
	}
	return parsed
}

// Serialize is the exact inverse of Parse: each normalized tag is split on
// ": " back into its 1-2 element pair. Entry order is preserved.
func Serialize(soundLayers []api.SoundLayer) []LayerFlag {
	flags := make([]LayerFlag, 0, len(soundLayers))
	for _, layer := range soundLayers {
		f := LayerFlag{Src: layer.Src}
		if layer.VolumeAdjustment != 1 {
			f.VolumeAdjustment = layer.VolumeAdjustment
		}
		f.Events = make([][]string, 0, len(layer.Events))
		for _, tag := range layer.Events {
			f.Events = append(f.Events, strings.SplitN(string(tag), ": ", 2))
		}
		flags = append(flags, f)
	}
	return flags
}

// Decode parses the raw flag value as stored on a playlist sound entity.
func Decode(raw []byte) ([]api.SoundLayer, error) {
	var flags []LayerFlag
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil, fmt.Errorf("decode sound layers: %w", err)
	}
	return Parse(flags), nil
}

// Encode marshals sound layers back into the stored flag value.
func Encode(soundLayers []api.SoundLayer) ([]byte, error) {
	data, err := json.Marshal(Serialize(soundLayers))
	if err != nil {
		return nil, fmt.Errorf("encode sound layers: %w", err)
	}
	return data, nil
}

// CustomEvents collects the distinct CUSTOM tag values declared across the
// given layers, e.g. "CUSTOM: BOSSFIGHT" yields "BOSSFIGHT".
func CustomEvents(soundLayers []api.SoundLayer) []string {
	seen := make(map[string]bool)
	var values []string
	for _, layer := range soundLayers {
		for _, tag := range layer.Events {
			value, ok := strings.CutPrefix(string(tag), "CUSTOM: ")
			if !ok {
				continue
			}
			if !seen[value] {
				seen[value] = true
				values = append(values, value)
			}
		}
	}
	return values
}
