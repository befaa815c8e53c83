package telegram

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/go-faster/errors"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/session"

	"telegram-campaign-engine/internal/biz/repo"
)

// NewSessionStorage selects the session material source: an opaque session
// string, a base64-encoded session string, or a local session file — the
// first available wins. The string forms are Telethon string sessions, so
// sessions provisioned by the operator tooling work unchanged.
func NewSessionStorage(sessionString, sessionB64, sessionFile string) (tdclient.SessionStorage, error) {
	switch {
	case sessionString != "":
		return storageFromString(sessionString)
	case sessionB64 != "":
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sessionB64))
		if err != nil {
			return nil, errors.Wrap(err, "decode base64 session")
		}
		return storageFromString(string(raw))
	case sessionFile != "":
		return &session.FileStorage{Path: sessionFile}, nil
	default:
		return nil, errors.Wrap(repo.ErrAuthRequired, "no session material configured")
	}
}

func storageFromString(s string) (tdclient.SessionStorage, error) {
	data, err := session.TelethonSession(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, "decode session string")
	}

	storage := new(session.StorageMemory)
	loader := session.Loader{Storage: storage}
	if err := loader.Save(context.Background(), data); err != nil {
		return nil, errors.Wrap(err, "load session string")
	}
	return storage, nil
}
