package editor

import "paintbox/scene"

// EnforceLayering stably partitions the z-order so every locked object sits
// above every unlocked one, and routes pointer events to locked objects
// only in select mode. The pass is idempotent; the session runs it after
// every commit and on every mode toggle.
func EnforceLayering(sc *scene.Scene, mode Mode) {
	objs := sc.Objects()
	order := make([]string, 0, len(objs))
	for _, o := range objs {
		if !o.Locked {
			order = append(order, o.ID)
		}
	}
	for _, o := range objs {
		if o.Locked {
			order = append(order, o.ID)
			o.Evented = mode == ModeSelect
		}
	}
	// Permutation by construction, so SetOrder cannot fail.
	_ = sc.SetOrder(order)
}

// setObjectLocked flips one object's full lock flag group. Movement,
// rotation and scaling lock together; resize handles and the hover
// affordance follow. Selectable stays true so a locked object can still be
// picked in select mode and unlocked again.
func setObjectLocked(o *scene.Object, locked bool, mode Mode) {
	o.Locked = locked
	o.Controls = !locked
	if locked {
		o.Hover = scene.HoverBlocked
		o.Evented = mode == ModeSelect
	} else {
		o.Hover = scene.HoverMove
		o.Evented = true
	}
}

// SetSelectionLocked applies one lock state to every selected object and to
// the transient multi-selection wrapper in the same pass, then re-enforces
// layering. Ids no longer in the arena are skipped.
func SetSelectionLocked(sc *scene.Scene, ids []string, wrapper *scene.Object, locked bool, mode Mode) {
	for _, id := range ids {
		if o, ok := sc.Get(id); ok {
			setObjectLocked(o, locked, mode)
		}
	}
	if wrapper != nil {
		setObjectLocked(wrapper, locked, mode)
	}
	EnforceLayering(sc, mode)
}

// ToggleSelectionLock flips the selection's lock state as one unit: if any
// selected object is unlocked the whole selection locks, otherwise it
// unlocks. Returns the state that was applied. A mixed selection can never
// stay mixed after a toggle.
func ToggleSelectionLock(sc *scene.Scene, ids []string, wrapper *scene.Object, mode Mode) bool {
	locked := false
	for _, id := range ids {
		if o, ok := sc.Get(id); ok && !o.Locked {
			locked = true
			break
		}
	}
	SetSelectionLocked(sc, ids, wrapper, locked, mode)
	return locked
}

// DeleteSelection removes the selected objects from the arena, skipping
// locked ones even when they are part of the selection. Returns the ids
// actually removed.
func DeleteSelection(sc *scene.Scene, ids []string) []string {
	var removed []string
	for _, id := range ids {
		if o, ok := sc.Get(id); ok && !o.Locked {
			sc.Remove(id)
			removed = append(removed, id)
		}
	}
	return removed
}
