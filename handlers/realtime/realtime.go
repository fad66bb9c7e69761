package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"sync"
	"time"

	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"paintbox/core"
	"paintbox/editor"
	"paintbox/handlers/auth"
)

type ackInvoker func(payload map[string]any)

// sceneLoader is the editor.Renderer backed by one connected socket. The
// session hands it a snapshot, it emits scene-load, and the completion
// callback is held until the client answers with scene-load-ack. An emit
// failure completes immediately so a vanished client cannot wedge the
// session in the load-pending state.
type sceneLoader struct {
	socket *socketio.Socket

	mu   sync.Mutex
	done func()
}

func (l *sceneLoader) LoadScene(snapshot []byte, done func()) {
	l.mu.Lock()
	l.done = done
	l.mu.Unlock()

	if err := l.socket.Emit("scene-load", map[string]any{"snapshot": string(snapshot)}); err != nil {
		utils.Log().Printf("scene-load emit to %v failed: %v\n", l.socket.Id(), err)
		l.completeLoad()
	}
}

func (l *sceneLoader) completeLoad() {
	l.mu.Lock()
	done := l.done
	l.done = nil
	l.mu.Unlock()
	if done != nil {
		done()
	}
}

// clientBinding is the session one socket is currently driving.
type clientBinding struct {
	mu       sync.Mutex
	session  *editor.Session
	renderer *sceneLoader
}

func (b *clientBinding) current() (*editor.Session, *sceneLoader) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session, b.renderer
}

func (b *clientBinding) swap(sess *editor.Session, loader *sceneLoader) *editor.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.session
	b.session = sess
	b.renderer = loader
	return prev
}

// pointerFramePayload is the wire form of one raw touch sample; at is the
// client's epoch-millisecond event timestamp.
type pointerFramePayload struct {
	Contacts []editor.Contact `json:"contacts"`
	At       int64            `json:"at"`
}

func (p pointerFramePayload) frame() editor.TouchFrame {
	at := time.Now()
	if p.At > 0 {
		at = time.UnixMilli(p.At)
	}
	return editor.TouchFrame{Contacts: p.Contacts, At: at}
}

// decodePayload converts a socket.io-decoded argument into a typed struct.
func decodePayload(arg any, into any) error {
	raw, err := json.Marshal(arg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

func socketClaims(socket *socketio.Socket) (*auth.AppClaims, error) {
	if auths, ok := socket.Handshake().Auth.(map[string]any); ok {
		if token, ok := auths["token"].(string); ok && token != "" {
			return auth.ParseJWT(token)
		}
	}
	return nil, fmt.Errorf("missing auth token")
}

func corsOrigins() []any {
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	origins := []any{localhostOrigin}
	if extra := os.Getenv("HOST_WEB_ORIGIN"); extra != "" {
		origins = append(origins, extra)
	}
	return origins
}

func SetupSocketIO(reg *editor.Registry) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      corsOrigins(),
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}

		claims, err := socketClaims(socket)
		if err != nil {
			utils.Log().Printf("socket %v rejected: %v\n", socket.Id(), err)
			_ = socket.Emit("unauthorized", map[string]any{"error": "valid session token required"})
			socket.Disconnect(true)
			return
		}
		owner := claims.Subject
		binding := &clientBinding{}
		_ = socket.Emit("welcome", map[string]any{"user": claims.User()})

		detach := func() {
			if prev := binding.swap(nil, nil); prev != nil {
				prev.AttachRenderer(nil)
				socket.Leave(socketio.Room(prev.ID()))
				utils.Log().Printf("socket %v left session %v\n", socket.Id(), prev.ID())
			}
		}

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("join-session", func(datas ...any) {
			ack, args := extractAck(datas)
			if len(args) == 0 {
				respond(socket, ack, "join-session-ack", errorPayload("session id is required"))
				return
			}
			sessionID, _ := args[0].(string)
			sess, err := reg.Get(sessionID)
			if err != nil || sess.Owner() != owner {
				respond(socket, ack, "join-session-ack", errorPayload("session not found"))
				return
			}

			detach()
			loader := &sceneLoader{socket: socket}
			binding.swap(sess, loader)
			sess.AttachRenderer(loader)
			socket.Join(socketio.Room(sessionID))
			utils.Log().Printf("socket %v joined session %v\n", socket.Id(), sessionID)

			respond(socket, ack, "join-session-ack", map[string]any{
				"status": "ok",
				"state":  sess.State(),
			})
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("scene-event", func(datas ...any) {
			ack, args := extractAck(datas)
			sess, _ := binding.current()
			if sess == nil {
				respond(socket, ack, "scene-event-ack", errorPayload("join a session first"))
				return
			}
			if len(args) == 0 {
				respond(socket, ack, "scene-event-ack", errorPayload("event payload is required"))
				return
			}

			var ev editor.Event
			if err := decodePayload(args[0], &ev); err != nil {
				respond(socket, ack, "scene-event-ack", errorPayload("unreadable event payload"))
				return
			}
			if err := sess.Apply(ev); err != nil {
				respond(socket, ack, "scene-event-ack", errorPayload(err.Error()))
				return
			}
			respond(socket, ack, "scene-event-ack", map[string]any{"status": "ok"})
		})

		// Raw multi-touch samples, high frequency and loss tolerant: no
		// acks, and viewport updates go back as volatile emits.
		socket.On("pointer-frame", func(datas ...any) {
			sess, _ := binding.current()
			if sess == nil || len(datas) == 0 {
				return
			}
			var payload pointerFramePayload
			if err := decodePayload(datas[0], &payload); err != nil {
				return
			}
			vp, eff := sess.HandleTouch(payload.frame())
			if eff.Entered || eff.Ended || eff.ViewportMoved {
				_ = socket.Volatile().Emit("viewport", map[string]any{
					"zoom":     vp.Zoom,
					"tx":       vp.TX,
					"ty":       vp.TY,
					"pinching": eff.Entered || (eff.ViewportMoved && !eff.Ended),
				})
			}
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("undo", func(datas ...any) {
			handleHistoryStep(socket, binding, (*editor.Session).Undo, datas)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("redo", func(datas ...any) {
			handleHistoryStep(socket, binding, (*editor.Session).Redo, datas)
		})

		socket.On("scene-load-ack", func(datas ...any) {
			if _, loader := binding.current(); loader != nil {
				loader.completeLoad()
			}
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("leave-session", func(datas ...any) {
			ack, _ := extractAck(datas)
			detach()
			respond(socket, ack, "leave-session-ack", map[string]any{"status": "ok"})
		})

		socket.On("disconnecting", func(datas ...any) {
			utils.Log().Printf("socket %v disconnecting\n", socket.Id())
			detach()
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}

// handleHistoryStep runs undo or redo. The snapshot itself travels through
// the sceneLoader as a scene-load emit; the ack only reports how the step
// resolved.
func handleHistoryStep(socket *socketio.Socket, binding *clientBinding, step func(*editor.Session) ([]byte, error), datas []any) {
	ack, _ := extractAck(datas)
	sess, _ := binding.current()
	if sess == nil {
		respond(socket, ack, "history-ack", errorPayload("join a session first"))
		return
	}

	snap, err := step(sess)
	switch {
	case errors.Is(err, core.ErrLoadPending):
		respond(socket, ack, "history-ack", map[string]any{"status": "busy"})
	case err != nil:
		respond(socket, ack, "history-ack", errorPayload(err.Error()))
	case snap == nil:
		respond(socket, ack, "history-ack", map[string]any{"status": "noop"})
	default:
		respond(socket, ack, "history-ack", map[string]any{"status": "ok"})
	}
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"status": "error", "error": msg}
}

// respond prefers the caller's ack callback and falls back to a named
// reply event for clients that did not pass one.
func respond(socket *socketio.Socket, ack ackInvoker, event string, payload map[string]any) {
	if ack != nil {
		ack(payload)
		return
	}
	if event != "" {
		_ = socket.Emit(event, payload)
	}
}

// extractAck peels a trailing callback off the raw event arguments.
func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	ack = wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

// wrapAck adapts an arbitrary client callback into an ackInvoker. The
// payload is passed to the first compatible parameter; everything else is
// zero-filled.
func wrapAck(candidate any) ackInvoker {
	if candidate == nil {
		return nil
	}
	value := reflect.ValueOf(candidate)
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil
	}
	typ := value.Type()
	return func(payload map[string]any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			args[i] = reflect.Zero(typ.In(i))
		}
		if typ.NumIn() > 0 {
			pv := reflect.ValueOf(payload)
			if pv.Type().AssignableTo(typ.In(0)) {
				args[0] = pv
			}
		}
		value.Call(args)
	}
}
