package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Species         []string       `json:"species"`
}

type WorldParams struct {
	Seed      int64  `json:"seed"`
	BoundaryR int    `json:"boundary_r"`
	ChunkSize [3]int `json:"chunk_size"`
	MaxDepth  int    `json:"max_depth"`
}

type CatalogDigests struct {
	SpeciesDigest string `json:"species_digest"`
	TuningDigest  string `json:"tuning_digest,omitempty"`
}

// CommandMsg carries every client command. Fields that a command does not
// use are ignored.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Pos             [3]int `json:"pos"`

	// PLANT
	Species string `json:"species,omitempty"`
	// FELL
	Mode    string `json:"mode,omitempty"`
	Fortune int    `json:"fortune,omitempty"`
	// CHECK
	Radius int      `json:"radius,omitempty"`
	Chance *float64 `json:"chance,omitempty"`
	Rapid  *bool    `json:"rapid,omitempty"`
	// ANALYSE
	From string `json:"from,omitempty"`
}

// RESULT (server -> client), one per command.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Data            any    `json:"data,omitempty"`
}

func OK(id string, data any) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: id, OK: true, Data: data}
}

func Fail(id, code, message string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: id, Code: code, Message: message}
}

// Result payloads.

type GrowResult struct {
	Success bool    `json:"success"`
	Steps   int     `json:"steps"`
	Turns   int     `json:"turns"`
	Radius  float64 `json:"radius"`
}

type FellResult struct {
	Mode      string      `json:"mode"`
	Species   string      `json:"species,omitempty"`
	Volume    int         `json:"volume"`
	Branches  int         `json:"branches"`
	Leaves    int         `json:"leaves"`
	RootFound bool        `json:"root_found"`
	Overflow  bool        `json:"overflow,omitempty"`
	Items     []ItemStack `json:"items,omitempty"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type CheckResult struct {
	Survived bool `json:"survived"`
}

type AnalyseResult struct {
	Found        bool    `json:"found"`
	Root         *[3]int `json:"root,omitempty"`
	Roots        int     `json:"roots"`
	LocalRootDir string  `json:"local_root_dir,omitempty"`
	Overflow     bool    `json:"overflow,omitempty"`
	MaxDepth     int     `json:"max_depth"`
	Volume       int     `json:"volume"`
	Branches     int     `json:"branches"`
}

type ConnectionsResult struct {
	Radii [6]int `json:"radii"`
}
