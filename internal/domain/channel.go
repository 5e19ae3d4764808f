package domain

import "errors"

var ErrUnknownChannel = errors.New("unknown channel")

// Channel is a named sub-audience within a room with its own
// read/write policy.
type Channel string

const (
	ChannelPublic Channel = "public"
	ChannelDead   Channel = "dead"
	ChannelWolves Channel = "wolves"
	ChannelSystem Channel = "system"
)

func ParseChannel(raw string) (Channel, error) {
	switch c := Channel(raw); c {
	case ChannelPublic, ChannelDead, ChannelWolves, ChannelSystem:
		return c, nil
	}
	return "", ErrUnknownChannel
}
