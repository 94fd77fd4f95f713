package comms

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matrixpi/gomatrix/onboard"
	"github.com/sirupsen/logrus"
)

const FRAMERATE = 10

// Cmd is a single client command from the websocket.
type Cmd struct {
	Cmd        string     `json:"cmd"`
	Controller string     `json:"controller,omitempty"`
	Channel    int        `json:"channel,omitempty"`
	Value      float64    `json:"value,omitempty"`
	Speed      int        `json:"speed,omitempty"`
	Twist      [3]float64 `json:"twist,omitempty"`
}

type ConductorInterface interface {
	ProcessCommand(cmd Cmd)
}

// Conductor fans the rig state out to websocket clients and feeds their
// commands back into the device.
type Conductor struct {
	Device onboard.Rig

	lock    sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// AddClient registers a websocket connection and starts reading commands
// from it until it drops.
func (c *Conductor) AddClient(conn *websocket.Conn) {
	c.lock.Lock()
	if c.clients == nil {
		c.clients = make(map[*websocket.Conn]struct{})
	}
	c.clients[conn] = struct{}{}
	c.lock.Unlock()

	go c.readClient(conn)
}

func (c *Conductor) readClient(conn *websocket.Conn) {
	defer c.removeClient(conn)

	for {
		var cmd Cmd
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		c.ProcessCommand(cmd)
	}
}

func (c *Conductor) removeClient(conn *websocket.Conn) {
	c.lock.Lock()
	delete(c.clients, conn)
	c.lock.Unlock()
	conn.Close()
}

// ProcessCommand applies a client command to the device. Failures are logged
// rather than returned; the next state frame shows the client what actually
// happened.
func (c *Conductor) ProcessCommand(cmd Cmd) {
	log := logrus.WithFields(logrus.Fields{
		"cmd":        cmd.Cmd,
		"controller": cmd.Controller,
		"channel":    cmd.Channel,
	})

	var err error
	switch cmd.Cmd {
	case "servo_enable":
		err = c.Device.EnableServo(cmd.Controller, cmd.Channel, cmd.Value != 0)

	case "servo_speed":
		err = c.Device.SetServoSpeed(cmd.Controller, cmd.Channel, uint8(cmd.Value))

	case "servo_target":
		if cmd.Value < 0 || cmd.Value > 250 {
			log.WithField("value", cmd.Value).Warn("servo target out of range")
			return
		}
		err = c.Device.SetServoTarget(cmd.Controller, cmd.Channel, uint8(cmd.Value))

	case "motor_speed":
		err = c.Device.SetMotorSpeed(cmd.Controller, cmd.Channel, int(cmd.Value))

	case "motor_slew":
		err = c.Device.SlewMotor(cmd.Controller, cmd.Channel, int32(cmd.Value), cmd.Speed)

	case "motor_reset":
		err = c.Device.ResetMotor(cmd.Controller, cmd.Channel)

	case "drive":
		err = c.Device.Drive(cmd.Twist[0], cmd.Twist[1], cmd.Twist[2])

	case "stop":
		err = c.Device.Stop()

	default:
		log.Warn("unknown command")
		return
	}

	if err != nil {
		log.WithError(err).Error("command failed")
	}
}

// UpdateClients broadcasts the rig state at the frame rate. Intended to run
// as a goroutine for the life of the process; the periodic reads also keep
// the hardware watchdog fed while clients are connected.
func (c *Conductor) UpdateClients() {
	ticker := time.NewTicker(time.Second / FRAMERATE)
	defer ticker.Stop()

	for range ticker.C {
		c.lock.Lock()
		idle := len(c.clients) == 0
		c.lock.Unlock()
		if idle {
			continue
		}

		state, err := c.Device.GetState()
		if err != nil {
			logrus.WithError(err).Error("unable to read rig state")
			continue
		}

		payload := StatePayload{
			State: state,
			Time:  time.Now().UTC(),
		}

		c.broadcast(payload)
	}
}

func (c *Conductor) broadcast(payload StatePayload) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for conn := range c.clients {
		if err := conn.WriteJSON(payload); err != nil {
			logrus.WithError(err).Debug("dropping websocket client")
			delete(c.clients, conn)
			conn.Close()
		}
	}
}
