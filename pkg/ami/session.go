package ami

import (
	"github.com/rs/zerolog/log"
)

// Session performs the login handshake and holds the negotiated
// banner.
type Session struct {
	transport *Transport
	ids       *IdGenerator

	Banner        string
	Authenticated bool
}

// NewSession wraps a connected Transport. ids is used to mint the
// ActionID on the Login action itself (the handshake is not tracked by
// ActionRegistry since it precedes the Running state).
func NewSession(t *Transport, ids *IdGenerator) *Session {
	return &Session{transport: t, ids: ids}
}

// Login reads the connect banner, submits {Action: Login, Username,
// Secret}, and reads the one packet reply. Succeeds iff the reply
// contains Response: Success and Message: Authentication accepted. On
// success Banner/Authenticated are populated; on failure it returns a
// *Error{Kind: KindAuthFailed}.
func (s *Session) Login(username, secret string) error {
	banner, err := s.transport.ReadBanner()
	if err != nil {
		return err
	}
	s.Banner = banner
	log.Debug().Str("banner", banner).Msg("ami banner received")

	login := PacketFromMap(map[string]string{
		"Action":   "Login",
		"Username": username,
		"Secret":   secret,
		"ActionID": s.ids.Next(),
	})
	if err := s.transport.WritePacket(Encode(login)); err != nil {
		return err
	}

	raw, err := s.transport.ReadPacket()
	if err != nil {
		return err
	}
	resp := Decode(raw, false)

	if resp.GetDefault("Response", "") == "Success" &&
		resp.GetDefault("Message", "") == "Authentication accepted" {
		s.Authenticated = true
		log.Info().Str("banner", s.Banner).Msg("ami login accepted")
		return nil
	}

	s.Authenticated = false
	msg := resp.GetDefault("Message", "authentication rejected")
	log.Error().Str("message", msg).Msg("ami login failed")
	return newErr(KindAuthFailed, msg, nil)
}
