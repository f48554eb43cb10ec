package server

import "canasta-arena/internal/canasta"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// CREATE GAME (create_game)
// ============================================================================
type CreateGameRequest struct {
	Username string          `json:"username"`
	Rules    canasta.Options `json:"rules"` // zero fields take engine defaults
}

type CreateGameResponse struct {
	RoomCode string          `json:"roomCode"`
	Token    string          `json:"token"`
	Seat     int             `json:"seat"`
	Rules    canasta.Options `json:"rules"`
}

// ============================================================================
// JOIN GAME (join_game)
// ============================================================================
type JoinGameRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type JoinGameResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Seat    int    `json:"seat"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// RECONNECT (reconnect)
// ============================================================================
type ReconnectRequest struct {
	Token string `json:"token"`
}

type ReconnectResponse struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode"`
	Seat     int    `json:"seat"`
	Status   string `json:"status"`
}

// ============================================================================
// SET READY (set_ready)
// ============================================================================
type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

// ============================================================================
// EXECUTE MOVE (execute_move)
// ============================================================================
type ExecuteMoveRequest struct {
	Move canasta.Move `json:"move"`
}

type ExecuteMoveResponse struct {
	Result canasta.Result `json:"result"`
}

// ============================================================================
// LOBBY STATE (lobby_update broadcast)
// ============================================================================
type LobbyState struct {
	RoomCode    string          `json:"roomCode"`
	Players     []LobbyPlayer   `json:"players"`
	PlayerCount int             `json:"playerCount"`
	Rules       canasta.Options `json:"rules"`
	Status      string          `json:"status"`
	AllReady    bool            `json:"allReady"`
}

type LobbyPlayer struct {
	Username  string `json:"username"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	IsYou     bool   `json:"isYou"` // personalized per client
}

// ============================================================================
// GAME BROADCASTS
// ============================================================================
type GameStartedNotification struct {
	Message string `json:"message"`
}

type PlayerStatusNotification struct {
	Seat      int    `json:"seat"`
	Username  string `json:"username"`
	Connected bool   `json:"connected"`
}

type GamePausedNotification struct {
	Message string `json:"message"`
}

// RoundOverNotification carries the score breakdown and, when the match is
// decided, the winner.
type RoundOverNotification struct {
	Reason      string              `json:"reason"` // "went_out" or "deck_empty"
	FinalScores []canasta.TeamScore `json:"finalScores"`
	Match       canasta.MatchStatus `json:"match"`
}
