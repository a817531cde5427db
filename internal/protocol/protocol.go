package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeResult  = "RESULT"

	TypePlant       = "PLANT"
	TypeGrow        = "GROW"
	TypeFell        = "FELL"
	TypeCheck       = "CHECK"
	TypeAnalyse     = "ANALYSE"
	TypeConnections = "CONNECTIONS"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// IsCommand reports whether t is a command a client may send after the
// handshake.
func IsCommand(t string) bool {
	switch t {
	case TypePlant, TypeGrow, TypeFell, TypeCheck, TypeAnalyse, TypeConnections:
		return true
	}
	return false
}
