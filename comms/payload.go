package comms

import (
	"time"

	"github.com/matrixpi/gomatrix/onboard"
)

type StatePayload struct {
	State onboard.RigState `json:"state"`
	Time  time.Time        `json:"time"`
}
