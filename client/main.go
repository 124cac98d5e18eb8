package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/townserver/controller"
	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/network"
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

// mirrors holds one controller per dance area the server has told us about.
var mirrors = map[string]*controller.DanceAreaController{}

func mirrorFor(model models.DanceAreaModel) *controller.DanceAreaController {
	if ctrl, ok := mirrors[model.ID]; ok {
		return ctrl
	}
	ctrl := controller.NewDanceAreaController(model)
	ctrl.On(controller.EventTimerChange, func(v interface{}) {
		log.Printf("[%s] timer: %v", model.ID, v)
	})
	ctrl.On(controller.EventCurrentScore, func(v interface{}) {
		log.Printf("[%s] score: %+v", model.ID, v)
	})
	ctrl.On(controller.EventDifficultyChange, func(v interface{}) {
		log.Printf("[%s] difficulty: %v", model.ID, v)
	})
	mirrors[model.ID] = ctrl
	return ctrl
}

func handleBroadcast(msgID uint16, data []byte) {
	switch msgID {
	case network.MsgTypeTownState:
		var state models.TownState
		if err := json.Unmarshal(data, &state); err != nil {
			log.Printf("Bad town state payload: %v", err)
			return
		}
		log.Printf("Joined town %s (%s) with %d interactables",
			state.FriendlyName, state.TownID, len(state.Interactables))
		for _, m := range state.Interactables {
			mirrorFor(m)
		}
	case network.MsgTypeAreaChanged:
		var model models.DanceAreaModel
		if err := json.Unmarshal(data, &model); err != nil {
			log.Printf("Bad area payload: %v", err)
			return
		}
		mirrorFor(model).UpdateFrom(model)
	case network.MsgTypePlayerMoved:
		var moved models.PlayerMoved
		if err := json.Unmarshal(data, &moved); err != nil {
			return
		}
		log.Printf("%s moved to (%.0f, %.0f) area=%q",
			moved.UserName, moved.Location.X, moved.Location.Y, moved.Location.InteractableID)
	default:
		log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
	}
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			handleBroadcast(msgID, message[4:])
		}
	}()

	// Create a town and walk into the first dance floor
	log.Println("Sending Create Town request...")
	req, _ := json.Marshal(map[string]string{"friendly_name": "demo town", "user_name": "dancer"})
	if err := send(c, network.MsgTypeCreateTown, req); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. Type 'left/right/up/down' to dance, 'move X Y' to walk.")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)

			switch {
			case text == "left" || text == "right" || text == "up" || text == "down":
				for id, ctrl := range mirrors {
					model := ctrl.Model()
					model.UserClicks = append(model.UserClicks, models.Arrow{
						Direction: models.ArrowDirection(strings.ToUpper(text[:1]) + text[1:]),
						Display:   text,
						Duration:  1,
					})
					data, _ := json.Marshal(model)
					if err := send(c, network.MsgTypeAreaUpdate, data); err != nil {
						log.Println("Write error:", err)
						return
					}
					log.Printf("-> SENT: %s to area %s", text, id)
				}
			case strings.HasPrefix(text, "move "):
				loc := models.PlayerLocation{Rotation: "front"}
				if _, err := fmt.Sscanf(text, "move %f %f", &loc.X, &loc.Y); err != nil {
					log.Println("Usage: move X Y")
					continue
				}
				data, _ := json.Marshal(loc)
				if err := send(c, network.MsgTypePlayerMove, data); err != nil {
					log.Println("Write error:", err)
					return
				}
			}
		}
	}
}
