package domain

import "errors"

const MaxRoomNameLen = 36

var (
	ErrRoomNameEmpty   = errors.New("room name is empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type (
	RoomName string
	RoomID   string
)

type Room struct {
	ID   RoomID   `json:"id"`
	Name RoomName `json:"name"`
}

func NewRoomName(raw string) (RoomName, error) {
	if raw == "" {
		return "", ErrRoomNameEmpty
	}
	if len(raw) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	return RoomName(raw), nil
}
