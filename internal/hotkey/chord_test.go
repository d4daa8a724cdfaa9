package hotkey

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.design/x/hotkey"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		wantMods []hotkey.Modifier
		wantKey  hotkey.Key
		wantErr  string
	}{
		{
			name:     "default chord",
			spec:     "ctrl+alt+space",
			wantMods: []hotkey.Modifier{hotkey.ModCtrl, hotkey.Mod1},
			wantKey:  hotkey.KeySpace,
		},
		{
			name:     "super with letter",
			spec:     "super+d",
			wantMods: []hotkey.Modifier{hotkey.Mod4},
			wantKey:  hotkey.KeyD,
		},
		{
			name:     "case and whitespace tolerant",
			spec:     " Ctrl + Shift + F5 ",
			wantMods: []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift},
			wantKey:  hotkey.KeyF5,
		},
		{
			name:     "modifier aliases",
			spec:     "control+meta+enter",
			wantMods: []hotkey.Modifier{hotkey.ModCtrl, hotkey.Mod4},
			wantKey:  hotkey.KeyReturn,
		},
		{
			name:    "empty spec",
			spec:    "   ",
			wantErr: "chord spec is empty",
		},
		{
			name:    "bare key without modifier",
			spec:    "space",
			wantErr: "at least one modifier",
		},
		{
			name:    "unknown modifier",
			spec:    "hyper+space",
			wantErr: `unknown modifier "hyper"`,
		},
		{
			name:    "unknown key",
			spec:    "ctrl+volumeup",
			wantErr: `unknown key "volumeup"`,
		},
		{
			name:    "duplicate modifier",
			spec:    "ctrl+control+space",
			wantErr: "duplicate modifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chord, err := ParseChord(tt.spec)
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantMods, chord.Mods)
			require.Equal(t, tt.wantKey, chord.Key)
		})
	}
}

func TestChordStringKeepsOriginalSpec(t *testing.T) {
	chord, err := ParseChord("ctrl+alt+space")
	require.NoError(t, err)
	require.Equal(t, "ctrl+alt+space", chord.String())
}
