// Command bot is a websocket load client: it joins a world and keeps placing
// and removing belts near the map center.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loguhan/FactoryGame/internal/protocol"
)

var dirs = []string{"N", "E", "S", "W"}

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "client name")
		role  = flag.String("role", protocol.RolePlayer, "PLAYER or OBSERVER")
		every = flag.Uint64("every_ticks", 30, "ticks between commands")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Role:            *role,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{
		conn:  conn,
		log:   logger,
		every: *every,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for {
		select {
		case <-stop:
			logger.Printf("sent=%d rejected=%d", b.sent, b.rejected)
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			b.params = w.WorldParams
			b.readOnly = w.Role == protocol.RoleObserver
			logger.Printf("WELCOME session=%s world=%s role=%s map=%dx%d seed=%d", w.SessionID, w.WorldID, w.Role, w.WorldParams.Width, w.WorldParams.Height, w.WorldParams.Seed)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			b.onState(&st)

		case protocol.TypeAck:
			var ack protocol.AckMsg
			if err := json.Unmarshal(msg, &ack); err != nil {
				continue
			}
			if !ack.Accepted {
				b.rejected++
				logger.Printf("ACK %s rejected: %s %s", ack.AckFor, ack.Code, ack.Message)
			}
		}
	}
}

type bot struct {
	conn     *websocket.Conn
	log      *log.Logger
	rng      *rand.Rand
	params   protocol.WorldParams
	readOnly bool
	every    uint64

	lastCmd  uint64
	placed   [][2]int
	sent     int
	rejected int
}

func (b *bot) onState(st *protocol.StateMsg) {
	if st.Tick%600 == 0 {
		b.log.Printf("tick=%d buildings=%d power=%.0f%% research=%d", st.Tick, len(st.Buildings), st.Power.Ratio*100, st.Stats.Research)
	}
	if b.readOnly || b.params.RegionSize == 0 || st.Tick-b.lastCmd < b.every {
		return
	}
	b.lastCmd = st.Tick

	// Mostly place; every third command takes one back.
	cmd := protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              fmt.Sprintf("bot_%d", st.Tick),
	}
	if len(b.placed) > 0 && b.rng.Intn(3) == 0 {
		i := b.rng.Intn(len(b.placed))
		p := b.placed[i]
		b.placed = append(b.placed[:i], b.placed[i+1:]...)
		cmd.Op, cmd.X, cmd.Y = protocol.OpRemove, p[0], p[1]
	} else {
		rs := b.params.RegionSize
		x := b.params.Width/2 - rs/2 + b.rng.Intn(rs)
		y := b.params.Height/2 - rs/2 + b.rng.Intn(rs)
		cmd.Op, cmd.X, cmd.Y = protocol.OpPlace, x, y
		cmd.Kind, cmd.Dir = "CONVEYOR", dirs[b.rng.Intn(len(dirs))]
		b.placed = append(b.placed, [2]int{x, y})
	}
	if err := b.conn.WriteJSON(cmd); err != nil {
		b.log.Printf("send CMD: %v", err)
		return
	}
	b.sent++
}
