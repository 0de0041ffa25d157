// Command eventtap runs an in-memory player surface (container > wrapper >
// video, plus one overlay node) wired through the event binder, and serves a
// websocket endpoint that streams every routed event to connected clients.
// Clients can inject synthetic DOM or engine events to exercise the routing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mediakit/eventrouter/internal/binder"
	"github.com/mediakit/eventrouter/internal/config"
	"github.com/mediakit/eventrouter/internal/dom"
	"github.com/mediakit/eventrouter/internal/engine"
)

var configPath = flag.String("config", "", "path to configuration file")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for the demo
	},
}

// TapEvent is one routed event as streamed to clients.
type TapEvent struct {
	Target string `json:"target"`
	Event  string `json:"event"`
	Node   string `json:"node,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// InjectMessage is a client request to fire a synthetic event.
type InjectMessage struct {
	Type  string `json:"type"` // "dom" or "engine"
	Node  string `json:"node,omitempty"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

type hub struct {
	logger     *zap.Logger
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		logger:     logger,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Info("client registered", zap.String("client_id", c.id))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Info("client unregistered", zap.String("client_id", c.id))
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// playerHost owns the in-memory node tree and the engine reference.
type playerHost struct {
	mu        sync.RWMutex
	container *dom.Element
	wrapper   *dom.Element
	video     *dom.Element
	overlays  []*dom.Element
	eng       *engine.NullEngine
}

func newPlayerHost() *playerHost {
	container := dom.NewElement("container")
	wrapper := dom.NewElement("wrapper")
	video := dom.NewElement("video")
	overlay := dom.NewElement("overlay")

	container.AppendChild(wrapper)
	wrapper.AppendChild(video)
	container.AppendChild(overlay)

	return &playerHost{
		container: container,
		wrapper:   wrapper,
		video:     video,
		overlays:  []*dom.Element{overlay},
	}
}

func (h *playerHost) Node(target binder.Target) dom.Node {
	switch target {
	case binder.TargetContainer:
		return h.container
	case binder.TargetWrapper:
		return h.wrapper
	default:
		return h.video
	}
}

func (h *playerHost) Engine() engine.Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.eng == nil {
		return nil
	}
	return h.eng
}

func (h *playerHost) OverlayNodes() []dom.Node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	nodes := make([]dom.Node, len(h.overlays))
	for i, o := range h.overlays {
		nodes[i] = o
	}
	return nodes
}

func (h *playerHost) ContainsVideo(n dom.Node) bool {
	if h.video.Contains(n) {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, o := range h.overlays {
		if o.Contains(n) {
			return true
		}
	}
	return false
}

// element resolves a client-supplied node name.
func (h *playerHost) element(name string) *dom.Element {
	switch name {
	case "container":
		return h.container
	case "wrapper":
		return h.wrapper
	case "overlay":
		if len(h.overlays) > 0 {
			return h.overlays[0]
		}
		return nil
	default:
		return h.video
	}
}

func (h *playerHost) setEngine(eng *engine.NullEngine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.eng = eng
}

// tapEvents is the event set the tap subscribes to across targets.
var tapEvents = []binder.EventKey{
	{ID: "tap", Name: "play"},
	{ID: "tap", Name: "pause"},
	{ID: "tap", Name: "error"},
	{ID: "tap", Name: "mediaInfo"},
	{ID: "tap", Name: "timeupdate", Target: binder.TargetVideo},
	{ID: "tap", Name: "click"},
	{ID: "tap", Name: "mouseenter"},
	{ID: "tap", Name: "mouseleave"},
	{ID: "tap", Name: "c_click"},
	{ID: "tap", Name: "w_click"},
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	host := newPlayerHost()

	// The binder comes up before the engine, so kernel subscriptions below
	// land in the pending queue and flush once the engine is set.
	bind := binder.New(host, logger.Named("binder"))

	h := newHub(logger.Named("hub"))
	go h.run()

	for _, key := range tapEvents {
		key := key
		if subErr := bind.On(key, func(args ...any) any {
			h.publish(resolveTapEvent(key, args))
			return nil
		}); subErr != nil {
			logger.Fatal("tap subscription failed",
				zap.String("event", key.Name),
				zap.Error(subErr),
			)
		}
	}

	logger.Info("kernel events pending before engine construction",
		zap.Int("pending", bind.PendingCount(binder.TargetKernel)),
	)

	eng := engine.NewNullEngine(logger.Named("engine"))
	host.setEngine(eng)
	bind.ApplyPendingEvents(binder.TargetKernel)

	logger.Info("engine constructed, pending events applied",
		zap.Strings("kernel_bindings", bind.BoundNames(binder.TargetKernel)),
	)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(h, host, eng, logger, w, r)
	})

	logger.Info("event tap listening", zap.String("address", cfg.Tap.Address))
	if err := http.ListenAndServe(cfg.Tap.Address, nil); err != nil {
		logger.Fatal("event tap server error", zap.Error(err))
	}
}

func (h *hub) publish(ev TapEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("failed to encode tap event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("tap broadcast dropped, hub busy")
	}
}

func resolveTapEvent(key binder.EventKey, args []any) TapEvent {
	ev := TapEvent{Event: key.Name, Target: string(key.Target)}
	if len(args) == 0 {
		return ev
	}
	if raw, ok := args[0].(dom.Event); ok {
		ev.Event = raw.Name
		if el, isEl := raw.Target.(*dom.Element); isEl {
			ev.Node = el.Name()
		}
		ev.Data = raw.Data
		return ev
	}
	ev.Data = args[0]
	return ev
}

func serveWS(h *hub, host *playerHost, eng *engine.NullEngine, logger *zap.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.register <- c

	go c.writePump()
	go c.readPump(h, host, eng, logger)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (c *client) readPump(h *hub, host *playerHost, eng *engine.NullEngine, logger *zap.Logger) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg InjectMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn("bad inject message", zap.String("client_id", c.id), zap.Error(err))
			continue
		}

		switch msg.Type {
		case "dom":
			if el := host.element(msg.Node); el != nil {
				el.Dispatch(dom.Event{Name: msg.Event, Data: msg.Data})
			}
		case "engine":
			eng.Emit(msg.Event, msg.Data)
		default:
			logger.Warn("unknown inject type",
				zap.String("client_id", c.id),
				zap.String("type", msg.Type),
			)
		}
	}
}

// initLogger initializes the zap logger based on configuration.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
