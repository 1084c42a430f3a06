package domain

import "fmt"

const (
	powerToggle  = "t"
	stepForward  = "~"
	stepBackward = "~-"
)

// StatePatch is the device-neutral body of one request against the
// lighting controller. Unset fields are left untouched by the device.
// Preset and Palette hold either an absolute id (int) or a step token.
type StatePatch struct {
	On        any  `json:"on,omitempty" msgpack:"on,omitempty"`
	Bri       *int `json:"bri,omitempty" msgpack:"bri,omitempty"`
	Preset    any  `json:"ps,omitempty" msgpack:"ps,omitempty"`
	Palette   any  `json:"pal,omitempty" msgpack:"pal,omitempty"`
	WantState bool `json:"v,omitempty" msgpack:"v,omitempty"`
}

func (p StatePatch) Empty() bool {
	return p.On == nil && p.Bri == nil && p.Preset == nil && p.Palette == nil && !p.WantState
}

// Consolidate folds commands into a single patch. A field written twice
// with different values, or written twice by a command whose effect is
// not idempotent (toggles, cycle steps), is a conflict.
func Consolidate(commands []Command) (StatePatch, error) {
	b := patchBuilder{exclusive: make(map[string]bool)}
	for _, cmd := range commands {
		if err := b.apply(cmd); err != nil {
			return StatePatch{}, err
		}
	}
	if b.patch.Empty() {
		return StatePatch{}, ErrNoPayload
	}
	return b.patch, nil
}

type patchBuilder struct {
	patch     StatePatch
	exclusive map[string]bool
}

func (b *patchBuilder) apply(cmd Command) error {
	idempotent := cmd.Strategy == BatchStrategyMerge || cmd.Strategy == BatchStrategyConsolidate

	switch cmd.Kind {
	case KindTogglePower:
		return b.set("on", &b.patch.On, powerToggle, idempotent, cmd)
	case KindSetBrightness:
		var current any
		if b.patch.Bri != nil {
			current = *b.patch.Bri
		}
		if err := b.set("bri", &current, cmd.Value, idempotent, cmd); err != nil {
			return err
		}
		bri := cmd.Value
		b.patch.Bri = &bri
		return nil
	case KindSetPreset, KindSetQuickLoad:
		return b.set("ps", &b.patch.Preset, cmd.Value, idempotent, cmd)
	case KindCyclePreset:
		return b.set("ps", &b.patch.Preset, stepToken(cmd.Value), idempotent, cmd)
	case KindCyclePalette:
		return b.set("pal", &b.patch.Palette, stepToken(cmd.Value), idempotent, cmd)
	case KindSyncState:
		b.patch.WantState = true
		return nil
	case KindReconnectTransport:
		return fmt.Errorf("%s: %w", cmd.Kind, ErrNoPayload)
	default:
		return fmt.Errorf("%s: %w", cmd.Kind, ErrUnknownKind)
	}
}

func (b *patchBuilder) set(field string, slot *any, value any, idempotent bool, cmd Command) error {
	if *slot != nil {
		if b.exclusive[field] || !idempotent || *slot != value {
			return fmt.Errorf("field %q from %s: %w", field, cmd, ErrFieldConflict)
		}
		return nil
	}
	*slot = value
	b.exclusive[field] = !idempotent
	return nil
}

func stepToken(direction int) string {
	if direction < 0 {
		return stepBackward
	}
	return stepForward
}
