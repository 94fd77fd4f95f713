package errors

import "fmt"

type ControllerNameError struct {
	Name string
}

func (err ControllerNameError) Error() string {
	return fmt.Sprintf("no such controller %s", err.Name)
}

type ChannelRangeError struct {
	Controller string
	Channel    int
}

func (err ChannelRangeError) Error() string {
	return fmt.Sprintf("controller %s has no channel %d; channels are 1-4", err.Controller, err.Channel)
}

type NoDriveError struct{}

func (err NoDriveError) Error() string {
	return "no drive section configured for this rig"
}
