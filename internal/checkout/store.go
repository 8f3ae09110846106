package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	CookieName = "checkout"
	stateKey   = "state"
)

// Store keeps the wizard state in a signed, encrypted cookie, the server-side
// counterpart of the browser's session storage.
type Store struct {
	store *sessions.CookieStore
}

func NewStore(hashKey, blockKey []byte, maxAge int, secure bool) *Store {
	cs := sessions.NewCookieStore(hashKey, blockKey)
	cs.MaxAge(maxAge)
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.Secure = secure
	cs.Options.SameSite = http.SameSiteLaxMode
	return &Store{store: cs}
}

// Load never fails on a stale or tampered cookie; it starts a fresh wizard.
func (s *Store) Load(r *http.Request) (State, error) {
	var st State
	sess, err := s.store.Get(r, CookieName)
	if err != nil {
		return st, nil
	}
	raw, ok := sess.Values[stateKey].(string)
	if !ok || raw == "" {
		return st, nil
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, nil
	}
	return st, nil
}

func (s *Store) Save(r *http.Request, w http.ResponseWriter, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode checkout state: %w", err)
	}
	sess, _ := s.store.Get(r, CookieName)
	sess.Values[stateKey] = string(raw)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save checkout state: %w", err)
	}
	return nil
}

func (s *Store) Clear(r *http.Request, w http.ResponseWriter) error {
	sess, _ := s.store.Get(r, CookieName)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// DeriveKeys splits one secret into independent signing and encryption keys.
func DeriveKeys(secret []byte) (hashKey, blockKey []byte) {
	return derive(secret, "checkout-hash"), derive(secret, "checkout-block")
}

func derive(secret []byte, label string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(label))
	return mac.Sum(nil)
}
