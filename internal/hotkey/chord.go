// Package hotkey monitors the global push-to-talk chord.
package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

// Chord is a parsed global key combination: one or more modifiers plus a key.
type Chord struct {
	Mods []hotkey.Modifier
	Key  hotkey.Key

	raw string
}

func (c Chord) String() string {
	return c.raw
}

var modifierNames = map[string]hotkey.Modifier{
	"ctrl":    hotkey.ModCtrl,
	"control": hotkey.ModCtrl,
	"shift":   hotkey.ModShift,
	"alt":     hotkey.Mod1,
	"super":   hotkey.Mod4,
	"win":     hotkey.Mod4,
	"meta":    hotkey.Mod4,
}

var keyNames = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"enter":  hotkey.KeyReturn,
	"return": hotkey.KeyReturn,
	"tab":    hotkey.KeyTab,
	"esc":    hotkey.KeyEscape,
	"escape": hotkey.KeyEscape,
	"up":     hotkey.KeyUp,
	"down":   hotkey.KeyDown,
	"left":   hotkey.KeyLeft,
	"right":  hotkey.KeyRight,
	"a":      hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// ParseChord parses a "+"-separated chord spec like "ctrl+alt+space".
// Every part except the last must be a modifier; the last part is the key.
func ParseChord(spec string) (Chord, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Chord{}, fmt.Errorf("chord spec is empty")
	}

	parts := strings.Split(raw, "+")
	if len(parts) < 2 {
		return Chord{}, fmt.Errorf("chord %q needs at least one modifier and a key", raw)
	}

	chord := Chord{raw: raw}
	seen := make(map[hotkey.Modifier]bool)
	for _, part := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(part))
		mod, ok := modifierNames[name]
		if !ok {
			return Chord{}, fmt.Errorf("chord %q: unknown modifier %q", raw, part)
		}
		if seen[mod] {
			return Chord{}, fmt.Errorf("chord %q: duplicate modifier %q", raw, part)
		}
		seen[mod] = true
		chord.Mods = append(chord.Mods, mod)
	}

	keyName := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	key, ok := keyNames[keyName]
	if !ok {
		return Chord{}, fmt.Errorf("chord %q: unknown key %q", raw, parts[len(parts)-1])
	}
	chord.Key = key

	return chord, nil
}
