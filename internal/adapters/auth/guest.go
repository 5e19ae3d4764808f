// Package auth carries the built-in handshake implementations. Real
// deployments plug an external identity service behind
// core.Authenticator; Guest is the dev-mode stand-in.
package auth

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/dkeye/Nocturne/internal/core"
	"github.com/dkeye/Nocturne/internal/domain"
)

var ErrEmptyCredential = errors.New("empty credential")

// Guest derives a stable user id from the client token and names
// everyone "guest" until they rename.
type Guest struct{}

func (Guest) Verify(_ context.Context, credential string) (core.Identity, error) {
	if credential == "" {
		return core.Identity{}, ErrEmptyCredential
	}
	if len(credential) > domain.MaxUserIDLen {
		// Cut on a rune boundary so the id stays valid UTF-8.
		cut := domain.MaxUserIDLen
		for cut > 0 && !utf8.RuneStart(credential[cut]) {
			cut--
		}
		credential = credential[:cut]
	}
	return core.Identity{UserID: domain.UserID(credential), DisplayName: "guest"}, nil
}
