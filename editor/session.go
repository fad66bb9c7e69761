package editor

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"paintbox/core"
	"paintbox/scene"
)

// Renderer is the rendering surface the session pushes snapshots into.
// Loading is asynchronous: done must be called exactly once when the
// surface has finished applying the snapshot, and the session keeps
// capture suppression asserted until then.
type Renderer interface {
	LoadScene(snapshot []byte, done func())
}

// nullRenderer completes loads immediately. Sessions without an attached
// realtime client run against it.
type nullRenderer struct{}

func (nullRenderer) LoadScene(_ []byte, done func()) { done() }

// SessionState is the summary handed to clients; it carries no scene
// content.
type SessionState struct {
	ID          string       `json:"id"`
	ArtworkID   string       `json:"artworkId,omitempty"`
	ObjectCount int          `json:"objectCount"`
	CanUndo     bool         `json:"canUndo"`
	CanRedo     bool         `json:"canRedo"`
	LoadPending bool         `json:"loadPending"`
	Tool        Tool         `json:"tool"`
	Selection   []string     `json:"selection,omitempty"`
	Viewport    Viewport     `json:"viewport"`
	Gesture     GestureState `json:"gesture"`
}

// Session is one user's live editing state: scene arena, history stack,
// viewport, gesture interpreter, tool and selection. Every entry point
// takes the session mutex, which is the Go stand-in for the single UI
// thread the canvas runs on in the browser.
type Session struct {
	id    string
	owner string

	mu          sync.Mutex
	scene       *scene.Scene
	history     *History
	viewport    *Viewport
	gestures    *GestureInterpreter
	tool        Tool
	selection   []string
	wrapper     *scene.Object
	artworkID   string
	renderer    Renderer
	loadPending bool
	lastActive  time.Time

	log *logrus.Entry
}

func newSession(id, owner string, fitZoom float64) *Session {
	s := &Session{
		id:         id,
		owner:      owner,
		scene:      scene.New(),
		history:    NewHistory(),
		viewport:   NewViewport(fitZoom),
		gestures:   NewGestureInterpreter(),
		tool:       defaultTool(),
		renderer:   nullRenderer{},
		lastActive: time.Now(),
		log:        logrus.WithFields(logrus.Fields{"sessionId": id, "owner": owner}),
	}
	base, err := s.scene.Serialize()
	if err != nil {
		base = []byte(`{"version":1,"objects":[]}`)
	}
	s.history.Reset(base)
	return s
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Owner() string { return s.owner }

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// AttachRenderer swaps the rendering surface, typically when a realtime
// client joins or leaves. Passing nil detaches back to the null renderer.
func (s *Session) AttachRenderer(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		r = nullRenderer{}
	}
	s.renderer = r
}

// Apply consumes one scene event. Events arriving while a snapshot load is
// pending are dropped: they are echoes of the load itself or input the
// client should not have accepted yet, and either way they must not reach
// history.
func (s *Session) Apply(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	if s.loadPending {
		s.log.WithField("kind", ev.Kind).Debug("Event dropped while snapshot load pending")
		return nil
	}

	switch ev.Kind {
	case EventStrokeCompleted:
		return s.applyStroke(ev)
	case EventObjectAdded:
		return s.applyObjectAdded(ev)
	case EventObjectModified:
		return s.applyObjectModified(ev)
	case EventObjectRemoved:
		return s.applyObjectRemoved(ev)
	case EventSelectionChanged:
		s.setSelection(ev.Selection)
		s.commit()
		return nil
	case EventSelectionCleared:
		s.setSelection(nil)
		s.commit()
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

// ApplyBatch consumes events in order, stopping at the first malformed
// one.
func (s *Session) ApplyBatch(events []Event) error {
	for i, ev := range events {
		if err := s.Apply(ev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

func (s *Session) applyStroke(ev Event) error {
	if ev.Stroke == nil || len(ev.Stroke.Points) == 0 {
		return fmt.Errorf("stroke event without points")
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	if !s.gestures.StrokeAllowed(at) {
		s.log.Debug("Stroke discarded inside pinch window")
		return nil
	}
	obj := scene.NewPath(ev.Stroke.Points, s.tool.Color, s.tool.Width)
	obj.Brush = string(s.tool.Brush)
	if s.tool.Brush == BrushEraser {
		obj.Composite = scene.CompositeEraseOut
	}
	s.scene.Add(obj)
	s.commit()
	return nil
}

func (s *Session) applyObjectAdded(ev Event) error {
	if ev.Object == nil || ev.Object.Kind == "" {
		return fmt.Errorf("object-added event without object")
	}
	if ev.Object.Kind == scene.KindImage && ev.Object.Source == "" {
		return fmt.Errorf("image object without source")
	}
	s.scene.Add(ev.Object)
	s.commit()
	return nil
}

func (s *Session) applyObjectModified(ev Event) error {
	if ev.Object == nil || ev.Object.ID == "" {
		return fmt.Errorf("object-modified event without object id")
	}
	target, ok := s.scene.Get(ev.Object.ID)
	if !ok {
		s.log.WithField("objectId", ev.Object.ID).Debug("Modify ignored for unknown object")
		return nil
	}
	if target.Locked {
		s.log.WithField("objectId", ev.Object.ID).Debug("Modify ignored for locked object")
		return nil
	}
	s.scene.Add(ev.Object)
	s.commit()
	return nil
}

func (s *Session) applyObjectRemoved(ev Event) error {
	if ev.ObjectID == "" {
		return fmt.Errorf("object-removed event without object id")
	}
	target, ok := s.scene.Get(ev.ObjectID)
	if !ok {
		return nil
	}
	if target.Locked {
		s.log.WithField("objectId", ev.ObjectID).Debug("Remove ignored for locked object")
		return nil
	}
	s.scene.Remove(ev.ObjectID)
	s.commit()
	return nil
}

// setSelection replaces the selection with the ids still present in the
// arena and rebuilds the transient multi-selection wrapper.
func (s *Session) setSelection(ids []string) {
	var kept []string
	for _, id := range ids {
		if s.scene.Has(id) {
			kept = append(kept, id)
		}
	}
	s.selection = kept
	if len(kept) > 1 {
		s.wrapper = scene.NewGroup(kept)
	} else {
		s.wrapper = nil
	}
}

// commit runs the locked-object pass and captures the result. Every stored
// snapshot therefore already satisfies the locked-topmost ordering.
func (s *Session) commit() {
	EnforceLayering(s.scene, s.tool.Mode)
	snap, err := s.scene.Serialize()
	if err != nil {
		s.log.WithError(err).Error("Failed to serialize scene for history")
		return
	}
	if s.history.Capture(snap) {
		s.log.WithField("historyLen", s.history.Len()).Debug("Scene snapshot captured")
	}
}

// HandleTouch feeds one raw touch frame through the gesture interpreter.
// Entering a pinch clears the selection; the in-progress stroke dies on
// the client and its completion event is discarded by the lift-off check.
func (s *Session) HandleTouch(frame TouchFrame) (Viewport, PinchEffect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	eff := s.gestures.Feed(frame, s.viewport)
	if eff.Entered {
		s.setSelection(nil)
		s.log.Debug("Pinch started")
	}
	if eff.Ended {
		s.log.Debug("Pinch ended, drawing re-enabled after lift-off delay")
	}
	return *s.viewport, eff
}

// SetTool updates brush, color, width and mode. A mode change re-runs the
// locked-object pass so event routing follows the new mode; it is not an
// edit and captures nothing.
func (s *Session) SetTool(t Tool) error {
	if !t.Brush.Valid() {
		return fmt.Errorf("unknown brush %q", t.Brush)
	}
	if !t.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", t.Mode)
	}
	if t.Width <= 0 {
		return fmt.Errorf("brush width must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	modeChanged := t.Mode != s.tool.Mode
	s.tool = t
	if modeChanged {
		EnforceLayering(s.scene, s.tool.Mode)
		s.log.WithField("mode", t.Mode).Debug("Interaction mode changed")
	}
	return nil
}

// ToggleLock flips the lock state of the current selection as one unit and
// returns the applied state.
func (s *Session) ToggleLock() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	if len(s.selection) == 0 {
		return false, fmt.Errorf("nothing selected")
	}
	locked := ToggleSelectionLock(s.scene, s.selection, s.wrapper, s.tool.Mode)
	s.commit()
	s.log.WithFields(logrus.Fields{"locked": locked, "objects": len(s.selection)}).Info("Selection lock toggled")
	return locked, nil
}

// DeleteSelection removes the selected objects, skipping locked ones, and
// clears the selection.
func (s *Session) DeleteSelection() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	if len(s.selection) == 0 {
		return nil, nil
	}
	removed := DeleteSelection(s.scene, s.selection)
	s.setSelection(nil)
	if len(removed) > 0 {
		s.commit()
		s.log.WithField("removed", len(removed)).Info("Selection deleted")
	}
	return removed, nil
}

// Undo steps history back one snapshot and starts loading it into the
// renderer. Returns nil with no error at the history floor. While the load
// is pending further undo/redo calls fail with core.ErrLoadPending.
func (s *Session) Undo() ([]byte, error) {
	return s.step((*History).Undo, "undo")
}

// Redo re-applies the most recently undone snapshot under the same
// discipline as Undo.
func (s *Session) Redo() ([]byte, error) {
	return s.step((*History).Redo, "redo")
}

func (s *Session) step(move func(*History) []byte, name string) ([]byte, error) {
	s.mu.Lock()
	s.lastActive = time.Now()

	if s.loadPending {
		s.mu.Unlock()
		return nil, core.ErrLoadPending
	}
	snap := move(s.history)
	if snap == nil {
		s.mu.Unlock()
		s.log.WithField("op", name).Debug("History step ignored at boundary")
		return nil, nil
	}
	parsed, err := scene.Parse(snap)
	if err != nil {
		// Roll the stack back to where it was; the inverse move restores it.
		if name == "undo" {
			s.history.Redo()
		} else {
			s.history.Undo()
		}
		s.mu.Unlock()
		return nil, fmt.Errorf("corrupt history snapshot: %w", err)
	}
	s.installScene(parsed)
	renderer := s.renderer
	s.mu.Unlock()

	renderer.LoadScene(snap, s.finishLoad)
	return snap, nil
}

// LoadSnapshot replaces the whole editing state with a saved artwork's
// snapshot: history reseeds to a single baseline and the renderer load
// begins.
func (s *Session) LoadSnapshot(snap []byte) error {
	s.mu.Lock()
	if s.loadPending {
		s.mu.Unlock()
		return core.ErrLoadPending
	}
	parsed, err := scene.Parse(snap)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	canonical, err := parsed.Serialize()
	if err != nil {
		canonical = snap
	}
	s.history.Reset(canonical)
	s.installScene(parsed)
	renderer := s.renderer
	s.mu.Unlock()

	renderer.LoadScene(canonical, s.finishLoad)
	return nil
}

// Clear resets the canvas to empty, reseeding history the same way loading
// an artwork does.
func (s *Session) Clear() error {
	blank, err := scene.New().Serialize()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.artworkID = ""
	s.mu.Unlock()
	return s.LoadSnapshot(blank)
}

// installScene swaps the arena in, re-derives the interaction flags that
// snapshots do not carry, and asserts capture suppression until the
// renderer acks. Callers hold the mutex.
func (s *Session) installScene(parsed *scene.Scene) {
	s.scene = parsed
	for _, o := range s.scene.Objects() {
		setObjectLocked(o, o.Locked, s.tool.Mode)
	}
	EnforceLayering(s.scene, s.tool.Mode)
	s.setSelection(nil)
	s.history.BeginRestore()
	s.loadPending = true
}

// finishLoad is the renderer completion callback. Suppression lifts here
// and nowhere else.
func (s *Session) finishLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loadPending {
		return
	}
	s.loadPending = false
	s.history.EndRestore()
	s.log.Debug("Snapshot load acknowledged by renderer")
}

// SceneSnapshot serializes the current scene, e.g. for saving into the
// gallery.
func (s *Session) SceneSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Serialize()
}

func (s *Session) ArtworkID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artworkID
}

// SetArtworkID records which gallery entry this session edits; handlers
// call it after a save resolves the id.
func (s *Session) SetArtworkID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artworkID = id
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := make([]string, len(s.selection))
	copy(sel, s.selection)
	return SessionState{
		ID:          s.id,
		ArtworkID:   s.artworkID,
		ObjectCount: s.scene.Len(),
		CanUndo:     s.history.CanUndo(),
		CanRedo:     s.history.CanRedo(),
		LoadPending: s.loadPending,
		Tool:        s.tool,
		Selection:   sel,
		Viewport:    *s.viewport,
		Gesture:     s.gestures.State(),
	}
}
