package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/observability"
	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/protocol/session"
)

const defaultConfigPath = "cmd/overlay-client/client.toml"

var (
	// ErrNavigateExit ends the interactive loop.
	ErrNavigateExit = errors.New("navigate exit")
	ErrUsage        = errors.New("usage")
)

// clientConfigFile lists the daemons the client can connect to.
type clientConfigFile struct {
	Name    string         `toml:"name"`
	Token   string         `toml:"token"`
	Targets []targetConfig `toml:"targets"`
}

type targetConfig struct {
	Name  string `toml:"name"`
	URL   string `toml:"url"`
	World string `toml:"world"`
}

func main() {
	var (
		cfgPath string
		target  string
	)
	flag.StringVar(&cfgPath, "config", defaultConfigPath, "client TOML config")
	flag.StringVar(&target, "target", "", "target name from the config (default: first)")
	flag.Parse()

	observability.InitLogger("overlay-client")
	cfg, err := loadClientConfig(cfgPath)
	if err != nil {
		log.Error().Err(err).Msg("overlay-client config")
		os.Exit(1)
	}
	t, err := pickTarget(cfg, target)
	if err != nil {
		log.Error().Err(err).Msg("overlay-client target")
		os.Exit(1)
	}
	app := &App{name: cfg.Name, token: cfg.Token, world: t.World, in: bufio.NewReader(os.Stdin), out: os.Stdout}
	if err := app.Run(t.URL); err != nil {
		log.Error().Err(err).Msg("overlay-client exited")
		os.Exit(1)
	}
}

func loadClientConfig(path string) (clientConfigFile, error) {
	var cfg clientConfigFile
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return clientConfigFile{}, fmt.Errorf("load client config: %w", err)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "overlay-client"
	}
	if len(cfg.Targets) == 0 {
		return clientConfigFile{}, fmt.Errorf("load client config: no targets in %s", path)
	}
	return cfg, nil
}

func pickTarget(cfg clientConfigFile, name string) (targetConfig, error) {
	if name == "" {
		return cfg.Targets[0], nil
	}
	for _, t := range cfg.Targets {
		if t.Name == name {
			return t, nil
		}
	}
	return targetConfig{}, fmt.Errorf("unknown target %q", name)
}

// App is one interactive connection to an overlay daemon.
type App struct {
	name  string
	token string
	world string
	in    *bufio.Reader
	out   io.Writer

	conn  *websocket.Conn
	seq   atomic.Uint64
	mu    sync.Mutex
	live  map[uint32]session.DisplayState
	kinds map[uint32]uint8
}

// Run connects, completes the hello and serves commands until quit or EOF.
func (a *App) Run(url string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	a.conn = conn
	a.live = make(map[uint32]session.DisplayState)
	a.kinds = make(map[uint32]uint8)

	var hello bytes.Buffer
	if err := session.WriteHello(&hello, session.Hello{Name: a.name, World: a.world, Token: a.token}); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, hello.Bytes()); err != nil {
		return err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello ack: %w", err)
	}
	ack, err := session.ReadHelloAck(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	if ack.Status != session.AckStatusAccepted {
		return fmt.Errorf("hello rejected: %s", ack.Message)
	}
	log.Info().Str("client", ack.ClientID).Str("world", a.world).Msg("overlay-client connected")

	go a.readLoop()

	for {
		fmt.Fprint(a.out, "> ")
		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := a.handle(line); err != nil {
			if errors.Is(err, ErrNavigateExit) {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			fmt.Fprintf(a.out, "error: %v\n", err)
		}
	}
}

func (a *App) handle(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "quit", "exit":
		return ErrNavigateExit
	case "list":
		a.printLive()
		return nil
	case "help":
		fmt.Fprintln(a.out, "click x y z face [secondary] [include] | hit id | world name | mark x y z | refresh | list | quit")
		return nil
	}
	msg, world, err := buildCommand(a.seq.Add(1), a.world, fields)
	if err != nil {
		return err
	}
	a.world = world
	return a.conn.WriteMessage(websocket.BinaryMessage, msg)
}

// buildCommand encodes one command line. It returns the world the client is
// in after the command.
func buildCommand(id uint64, world string, fields []string) ([]byte, string, error) {
	switch fields[0] {
	case "click":
		if len(fields) < 5 {
			return nil, world, fmt.Errorf("%w: click x y z face [secondary] [include]", ErrUsage)
		}
		var cell [3]int32
		for i := range cell {
			v, err := strconv.ParseInt(fields[1+i], 10, 32)
			if err != nil {
				return nil, world, fmt.Errorf("%w: bad coordinate %q", ErrUsage, fields[1+i])
			}
			cell[i] = int32(v)
		}
		click := session.ToolClick{World: world, Cell: cell, Face: fields[4], Action: session.ActionPrimary}
		for _, opt := range fields[5:] {
			switch opt {
			case "secondary":
				click.Action = session.ActionSecondary
			case "include":
				click.Include = true
			default:
				return nil, world, fmt.Errorf("%w: unknown flag %q", ErrUsage, opt)
			}
		}
		msg, err := session.EncodeToolClickFrame(id, click)
		return msg, world, err
	case "hit":
		if len(fields) != 2 {
			return nil, world, fmt.Errorf("%w: hit id", ErrUsage)
		}
		v, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, world, fmt.Errorf("%w: bad entity id %q", ErrUsage, fields[1])
		}
		msg, err := session.EncodeInteractFrame(id, session.Interact{EntityID: uint32(v)})
		return msg, world, err
	case "world":
		if len(fields) != 2 {
			return nil, world, fmt.Errorf("%w: world name", ErrUsage)
		}
		msg, err := session.EncodeWorldChangeFrame(id, session.WorldChange{World: fields[1]})
		return msg, fields[1], err
	case "mark":
		if len(fields) != 4 {
			return nil, world, fmt.Errorf("%w: mark x y z", ErrUsage)
		}
		var pos [3]float64
		for i := range pos {
			v, err := strconv.ParseFloat(fields[1+i], 64)
			if err != nil {
				return nil, world, fmt.Errorf("%w: bad coordinate %q", ErrUsage, fields[1+i])
			}
			pos[i] = v
		}
		msg, err := session.EncodeDebugMarkFrame(id, session.DebugMark{World: world, Position: pos})
		return msg, world, err
	case "refresh":
		msg, err := session.EncodeSelectionRefreshFrame(id)
		return msg, world, err
	}
	return nil, world, fmt.Errorf("%w: unknown command %q", ErrUsage, fields[0])
}

func (a *App) readLoop() {
	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Msg("overlay-client connection closed")
			return
		}
		if err := a.apply(data); err != nil {
			log.Warn().Err(err).Msg("overlay-client bad frame")
		}
	}
}

// apply tracks which entities the daemon currently shows this client.
func (a *App) apply(data []byte) error {
	f, err := session.ParseFrame(data)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch f.Header.MessageType {
	case schema.MsgDisplaySpawn:
		m, err := session.DecodeSpawnFrame(f)
		if err != nil {
			return err
		}
		a.kinds[m.EntityID] = m.Kind
	case schema.MsgDisplayState:
		m, err := session.DecodeStateFrame(f)
		if err != nil {
			return err
		}
		a.live[m.EntityID] = m
	case schema.MsgDisplayRemove:
		m, err := session.DecodeRemoveFrame(f)
		if err != nil {
			return err
		}
		delete(a.live, m.EntityID)
		delete(a.kinds, m.EntityID)
	default:
		return fmt.Errorf("unexpected %s", schema.Name(f.Header.MessageType))
	}
	return nil
}

func (a *App) printLive() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]uint32, 0, len(a.live))
	for id := range a.live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		st := a.live[id]
		kind := "display"
		if a.kinds[id] == session.KindHitbox {
			kind = "hitbox"
		}
		fmt.Fprintf(a.out, "%6d %-7s %-20s pos=%.2f,%.2f,%.2f scale=%.2f,%.2f,%.2f\n",
			id, kind, st.Appearance,
			st.Position[0], st.Position[1], st.Position[2],
			st.Scale[0], st.Scale[1], st.Scale[2])
	}
	fmt.Fprintf(a.out, "%d live\n", len(ids))
}
