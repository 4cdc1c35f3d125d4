package layers

import (
	"reflect"
	"testing"

	"github.com/Element-Re/crossblade/api"
)

func TestParse_NormalizesTags(t *testing.T) {
	flags := []LayerFlag{
		{Src: "a.ogg", Events: [][]string{{"combatant", "hostile"}, {"custom"}}},
	}

	parsed := Parse(flags)
	if len(parsed) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(parsed))
	}

	want := []api.EventTag{"COMBATANT: HOSTILE", "CUSTOM"}
	if !reflect.DeepEqual(parsed[0].Events, want) {
		t.Errorf("Events = %v, want %v", parsed[0].Events, want)
	}
	if parsed[0].VolumeAdjustment != 1 {
		t.Errorf("VolumeAdjustment = %f, want default 1", parsed[0].VolumeAdjustment)
	}
}

func TestParse_DropsMalformedEntries(t *testing.T) {
	tests := []struct {
		name  string
		flags []LayerFlag
		want  int
	}{
		{"missing src", []LayerFlag{{Events: [][]string{{"CUSTOM"}}}}, 0},
		{"empty events", []LayerFlag{{Src: "a.ogg", Events: [][]string{}}}, 0},
		{"valid entry", []LayerFlag{{Src: "a.ogg", Events: [][]string{{"CUSTOM"}}}}, 1},
		{
			"valid among malformed",
			[]LayerFlag{
				{Events: [][]string{{"CUSTOM"}}},
				{Src: "b.ogg", Events: [][]string{{"GAME", "PAUSED"}}},
			},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.flags); len(got) != tt.want {
				t.Errorf("Parse returned %d layers, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	flags := []LayerFlag{
		{Src: "a.ogg", Events: [][]string{{"COMBATANT", "HOSTILE"}, {"COMBATANT", "NEUTRAL"}}},
		{Src: "b.ogg", VolumeAdjustment: 0.5, Events: [][]string{{"CUSTOM", "BOSS"}}},
		{Src: "c.ogg", Events: [][]string{{"GAME", "PAUSED"}}},
		{Src: "d.ogg", Events: [][]string{{"CUSTOM"}}},
	}

	got := Serialize(Parse(flags))
	if !reflect.DeepEqual(got, flags) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, flags)
	}
}

func TestSerialize_SplitsOnFirstSeparator(t *testing.T) {
	soundLayers := []api.SoundLayer{
		{Src: "a.ogg", VolumeAdjustment: 1, Events: []api.EventTag{"CUSTOM: PHASE: TWO"}},
	}

	flags := Serialize(soundLayers)
	want := []string{"CUSTOM", "PHASE: TWO"}
	if !reflect.DeepEqual(flags[0].Events[0], want) {
		t.Errorf("Events[0] = %v, want %v", flags[0].Events[0], want)
	}
}

func TestDecode_Encode(t *testing.T) {
	raw := []byte(`[{"src":"a.ogg","events":[["COMBATANT","HOSTILE"]]},{"src":"b.ogg","volumeAdjustment":0.8,"events":[["CUSTOM","BOSS"]]}]`)

	soundLayers, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(soundLayers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(soundLayers))
	}

	out, err := Encode(soundLayers)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != string(raw) {
		t.Errorf("Encode = %s, want %s", out, raw)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Error("Decode should fail on invalid JSON")
	}
}

func TestCustomEvents(t *testing.T) {
	soundLayers := []api.SoundLayer{
		{Src: "a.ogg", Events: []api.EventTag{"CUSTOM: BOSS", "COMBATANT: HOSTILE"}},
		{Src: "b.ogg", Events: []api.EventTag{"CUSTOM: BOSS", "CUSTOM: VICTORY"}},
	}

	got := CustomEvents(soundLayers)
	want := []string{"BOSS", "VICTORY"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CustomEvents = %v, want %v", got, want)
	}
}
