package webd

import (
	"encoding/json"

	"github.com/olahol/melody"
	"github.com/rotblauer/skytile/credits"
)

type websocketAction string

var websocketActionCredits websocketAction = "credits"

type creditsMessage struct {
	Action  websocketAction  `json:"action"`
	Short   string           `json:"short"`
	Credits credits.Snapshot `json:"credits"`
}

func marshalCredits(snap credits.Snapshot) ([]byte, error) {
	return json.Marshal(creditsMessage{
		Action:  websocketActionCredits,
		Short:   snap.Short(),
		Credits: snap,
	})
}

// initMelody sets up the websocket handler.
// Clients get the current credits on connect, then every change
// a rendered frame produces.
func (s *WebDaemon) initMelody() {
	m := melody.New()
	s.melodyInstance = m

	m.HandleConnect(func(sess *melody.Session) {
		s.logger.Debug("Websocket connected", "remote", sess.Request.RemoteAddr)
		s.mu.Lock()
		snap := s.scene.Credits()
		s.mu.Unlock()
		b, err := marshalCredits(snap)
		if err != nil {
			s.logger.Error("Failed to marshal credits", "error", err)
			return
		}
		if err := sess.Write(b); err != nil {
			s.logger.Warn("Failed to write credits", "error", err)
		}
	})

	// Clients have nothing to say. Log and drop.
	m.HandleMessage(func(sess *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", sess.Request.RemoteAddr, "msg", string(msg))
	})

	m.HandleDisconnect(func(sess *melody.Session) {
		s.logger.Debug("Websocket disconnected", "remote", sess.Request.RemoteAddr)
	})

	m.HandleError(func(sess *melody.Session, e error) {
		s.logger.Warn("Websocket error", "error", e, "remote", sess.Request.RemoteAddr)
	})

	if s.creditsSub != nil {
		s.creditsSub.Unsubscribe()
	}
	snaps := make(chan credits.Snapshot, 16)
	sub := s.scene.SubscribeCredits(snaps)
	s.creditsSub = sub
	go func() {
		for {
			select {
			case snap := <-snaps:
				b, err := marshalCredits(snap)
				if err != nil {
					s.logger.Error("Failed to marshal credits", "error", err)
					continue
				}
				if err := m.Broadcast(b); err != nil {
					s.logger.Warn("Failed to broadcast credits", "error", err)
				}
			case <-sub.Err():
				return
			}
		}
	}()
}
