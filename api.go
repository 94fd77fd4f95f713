package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/asdine/storm/v3"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/matrixpi/gomatrix/onboard"
	"github.com/sirupsen/logrus"
)

//---
// Error responses
//---

type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrPermissionDenied(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied.",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthorized(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized.",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}

//---
// Poses
//---

// PoseChannel is one servo position inside a saved pose.
type PoseChannel struct {
	Controller string `json:"controller"`
	Channel    int    `json:"channel"`
	Target     uint8  `json:"target"`
}

// Pose is a named set of servo positions stored in the local DB.
type Pose struct {
	ID       int           `storm:"increment" json:"-"`
	Name     string        `storm:"unique" json:"name"`
	Channels []PoseChannel `json:"channels"`
}

func (p *Pose) Bind(r *http.Request) error {
	if p.Name == "" {
		return errors.New("pose name is required")
	}
	return nil
}

// Apply enables and targets every servo named in the pose.
func (p *Pose) Apply(rig onboard.Rig) error {
	for _, ch := range p.Channels {
		if err := rig.EnableServo(ch.Controller, ch.Channel, true); err != nil {
			return err
		}
		if err := rig.SetServoTarget(ch.Controller, ch.Channel, ch.Target); err != nil {
			return err
		}
	}
	return nil
}

// CapturePose snapshots the currently enabled servos into a pose.
func CapturePose(name string, rig onboard.Rig) (*Pose, error) {
	state, err := rig.GetState()
	if err != nil {
		return nil, err
	}

	pose := &Pose{Name: name}
	for controller, cs := range state {
		for i, servo := range cs.Servos {
			if !servo.Enabled {
				continue
			}
			pose.Channels = append(pose.Channels, PoseChannel{
				Controller: controller,
				Channel:    i + 1,
				Target:     servo.Target,
			})
		}
	}

	return pose, nil
}

//---
// Device payloads
//---

type ServoRequest struct {
	Enable *bool `json:"enable,omitempty"`
	Speed  *int  `json:"speed,omitempty"`
	Target *int  `json:"target,omitempty"`
}

func (s *ServoRequest) Bind(r *http.Request) error {
	if s.Enable == nil && s.Speed == nil && s.Target == nil {
		return errors.New("provide at least one of enable, speed, target")
	}
	if s.Speed != nil && (*s.Speed < 0 || *s.Speed > 255) {
		return errors.New("speed must be within 0-255")
	}
	if s.Target != nil && (*s.Target < 0 || *s.Target > 250) {
		return errors.New("target must be within 0-250")
	}
	return nil
}

type MotorRequest struct {
	Speed *int   `json:"speed,omitempty"`
	Slew  *int32 `json:"slew,omitempty"` // encoder target; uses Speed for the rate
	Reset bool   `json:"reset,omitempty"`
}

func (m *MotorRequest) Bind(r *http.Request) error {
	if m.Speed == nil && m.Slew == nil && !m.Reset {
		return errors.New("provide one of speed, slew, reset")
	}
	if m.Speed != nil && (*m.Speed < -100 || *m.Speed > 100) {
		return errors.New("speed must be within -100 to 100")
	}
	return nil
}

type DriveRequest struct {
	Vx float64 `json:"vx"`
	Vy float64 `json:"vy"`
	Wz float64 `json:"wz"`
}

func (d *DriveRequest) Bind(r *http.Request) error {
	return nil
}

//---
// Views
//---

func StateHandler(w http.ResponseWriter, r *http.Request) {
	state, err := ENV.Conductor.Device.GetState()
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}
	render.JSON(w, r, state)
}

func channelParams(r *http.Request) (name string, channel int, err error) {
	name = chi.URLParam(r, "name")
	channel, err = strconv.Atoi(chi.URLParam(r, "channel"))
	return
}

func ServoHandler(w http.ResponseWriter, r *http.Request) {
	name, channel, err := channelParams(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	data := &ServoRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	rig := ENV.Conductor.Device
	if data.Enable != nil {
		err = rig.EnableServo(name, channel, *data.Enable)
	}
	if err == nil && data.Speed != nil {
		err = rig.SetServoSpeed(name, channel, uint8(*data.Speed))
	}
	if err == nil && data.Target != nil {
		err = rig.SetServoTarget(name, channel, uint8(*data.Target))
	}

	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	render.NoContent(w, r)
}

func MotorHandler(w http.ResponseWriter, r *http.Request) {
	name, channel, err := channelParams(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	data := &MotorRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	rig := ENV.Conductor.Device
	switch {
	case data.Reset:
		err = rig.ResetMotor(name, channel)
	case data.Slew != nil:
		speed := 50
		if data.Speed != nil {
			speed = *data.Speed
		}
		err = rig.SlewMotor(name, channel, *data.Slew, speed)
	default:
		err = rig.SetMotorSpeed(name, channel, *data.Speed)
	}

	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	render.NoContent(w, r)
}

func DriveHandler(w http.ResponseWriter, r *http.Request) {
	data := &DriveRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := ENV.Conductor.Device.Drive(data.Vx, data.Vy, data.Wz); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	render.NoContent(w, r)
}

func StopHandler(w http.ResponseWriter, r *http.Request) {
	if err := ENV.Conductor.Device.Stop(); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}
	render.NoContent(w, r)
}

func PoseListHandler(w http.ResponseWriter, r *http.Request) {
	var poses []Pose
	if err := ENV.DB.All(&poses); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}
	render.JSON(w, r, poses)
}

// PoseSaveHandler captures the current servo positions under the given name.
func PoseSaveHandler(w http.ResponseWriter, r *http.Request) {
	data := &Pose{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	pose := data
	if len(data.Channels) == 0 {
		var err error
		pose, err = CapturePose(data.Name, ENV.Conductor.Device)
		if err != nil {
			render.Render(w, r, ErrRender(err))
			return
		}
	}

	// replace any existing pose of the same name
	var existing Pose
	if err := ENV.DB.One("Name", pose.Name, &existing); err == nil {
		pose.ID = existing.ID
	}

	if err := ENV.DB.Save(pose); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, pose)
}

func PoseApplyHandler(w http.ResponseWriter, r *http.Request) {
	var pose Pose
	if err := ENV.DB.One("Name", chi.URLParam(r, "pose"), &pose); err != nil {
		if err == storm.ErrNotFound {
			render.Render(w, r, ErrNotFound)
			return
		}
		render.Render(w, r, ErrRender(err))
		return
	}

	if err := pose.Apply(ENV.Conductor.Device); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	render.NoContent(w, r)
}

func PoseDeleteHandler(w http.ResponseWriter, r *http.Request) {
	var pose Pose
	if err := ENV.DB.One("Name", chi.URLParam(r, "pose"), &pose); err != nil {
		render.Render(w, r, ErrNotFound)
		return
	}

	if err := ENV.DB.DeleteStruct(&pose); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.NoContent(w, r)
}

//---
// Websocket
//---

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // device sits on a trusted LAN
}

// WSStateHandler upgrades the connection and hands it to the conductor.
func WSStateHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	ENV.Conductor.AddClient(conn)
}
