package common

// EventUpdateBrightness is emitted by a Bulb when its brightness is updated
type EventUpdateBrightness struct {
	Level uint16
}

// EventUpdateColor is emitted by a Bulb when its color is updated
type EventUpdateColor struct {
	White uint16
	Red   uint16
	Green uint16
	Blue  uint16
}

// EventUpdateName is emitted by a Bulb when its name is updated
type EventUpdateName struct {
	Name string
}
