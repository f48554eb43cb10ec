package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"canasta-arena/internal/canasta"
)

type GameManager struct {
	games     map[string]*ActiveGame
	usedCodes map[string]bool
	mu        sync.RWMutex
}

// ActiveGame is one room: lobby slots plus, once started, the engine
// instance. moveMu serializes engine calls per room; the engine itself is
// single-threaded by contract.
type ActiveGame struct {
	Game        *canasta.Game   `json:"game"`
	RoomCode    string          `json:"roomCode"`
	Rules       canasta.Options `json:"rules"`
	Status      GameStatus      `json:"status"`
	Players     []PlayerSlot    `json:"players"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	LobbyExpiry time.Time       `json:"lobbyExpiry"`

	moveMu sync.Mutex
}

type PlayerSlot struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	Connected bool      `json:"connected"`
	Ready     bool      `json:"ready"`
	JoinedAt  time.Time `json:"joinedAt"`
}

type GameStatus string

const (
	StatusLobby     GameStatus = "lobby"
	StatusPlaying   GameStatus = "playing"
	StatusPaused    GameStatus = "paused"
	StatusCompleted GameStatus = "completed"
)

func NewGameManager() *GameManager {
	return &GameManager{
		games:     make(map[string]*ActiveGame),
		usedCodes: make(map[string]bool),
	}
}

// CreateGame opens a lobby sized by the requested rule set (2 or 4 seats).
func (gm *GameManager) CreateGame(username string, rules canasta.Options) (*ActiveGame, string, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, "", err
	}
	if rules.PlayerCount != 0 && rules.PlayerCount != 2 && rules.PlayerCount != 4 {
		return nil, "", errors.New("INVALID_RULES: Player count must be 2 or 4")
	}
	rules = normalizeRules(rules)

	gm.mu.Lock()
	roomCode := GenerateRoomCode(gm.usedCodes)
	gm.usedCodes[roomCode] = true
	gm.mu.Unlock()

	token := uuid.New().String()

	now := time.Now()
	game := &ActiveGame{
		Game:        nil, // built once every seat is ready
		RoomCode:    roomCode,
		Rules:       rules,
		Status:      StatusLobby,
		Players:     make([]PlayerSlot, rules.PlayerCount),
		CreatedAt:   now,
		UpdatedAt:   now,
		LobbyExpiry: now.Add(10 * time.Minute),
	}

	game.Players[0] = PlayerSlot{
		Username:  username,
		Token:     token,
		Connected: true,
		JoinedAt:  now,
	}

	gm.mu.Lock()
	gm.games[roomCode] = game
	gm.mu.Unlock()

	return game, token, nil
}

func (gm *GameManager) JoinGame(roomCode, username string) (*ActiveGame, string, int, error) {
	roomCode = NormalizeRoomCode(roomCode)
	if err := ValidateRoomCode(roomCode); err != nil {
		return nil, "", -1, err
	}

	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, "", -1, errors.New("ROOM_NOT_FOUND: Game not found")
	}
	if game.Status != StatusLobby {
		return nil, "", -1, errors.New("GAME_ALREADY_STARTED: Cannot join game in progress")
	}
	if err := gm.validateUsername(game, username); err != nil {
		return nil, "", -1, err
	}

	seat := -1
	for i, slot := range game.Players {
		if slot.Username == "" {
			seat = i
			break
		}
	}
	if seat == -1 {
		return nil, "", -1, fmt.Errorf("ROOM_FULL: Lobby is full (%d/%d players)",
			len(game.Players), len(game.Players))
	}

	token := uuid.New().String()
	now := time.Now()
	game.Players[seat] = PlayerSlot{
		Username:  username,
		Token:     token,
		Connected: true,
		JoinedAt:  now,
	}
	game.UpdatedAt = now

	return game, token, seat, nil
}

func (gm *GameManager) SetReady(roomCode, token string, ready bool) (*ActiveGame, bool, error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, false, errors.New("ROOM_NOT_FOUND: Game not found")
	}
	if game.Status != StatusLobby {
		return nil, false, errors.New("GAME_ALREADY_STARTED: Cannot change ready state after game starts")
	}

	seat := game.seatByToken(token)
	if seat == -1 {
		return nil, false, errors.New("NOT_IN_GAME: Invalid token")
	}

	game.Players[seat].Ready = ready
	game.UpdatedAt = time.Now()

	return game, game.allReady(), nil
}

// StartGame builds the engine and moves the room into play.
func (gm *GameManager) StartGame(roomCode string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	game, exists := gm.games[roomCode]
	if !exists {
		return errors.New("ROOM_NOT_FOUND: Game not found")
	}
	if game.Status != StatusLobby {
		return errors.New("INVALID_STATUS: Game already started")
	}
	if !game.allReady() {
		return errors.New("NOT_ALL_READY: Cannot start game, not all players ready")
	}

	game.Game = canasta.NewGame(game.Rules)
	game.Status = StatusPlaying
	game.UpdatedAt = time.Now()

	return nil
}

// MoveOutcome carries everything a move can produce: the engine result plus
// round/match resolution when the move ended the round.
type MoveOutcome struct {
	Result      canasta.Result
	RoundOver   bool
	FinalScores []canasta.TeamScore
	Match       canasta.MatchStatus
}

// ExecuteMove runs one engine action for the token's seat. Calls are
// serialized per room. When a move ends the round, the score is committed
// immediately and, if the match continues, the next round is dealt.
func (gm *GameManager) ExecuteMove(token string, move canasta.Move) (*ActiveGame, int, MoveOutcome, error) {
	game, seat, err := gm.GetGameByToken(token)
	if err != nil {
		return nil, -1, MoveOutcome{}, err
	}
	if game.Status != StatusPlaying {
		return nil, -1, MoveOutcome{}, errors.New("INVALID_STATUS: Game is not in play")
	}

	game.moveMu.Lock()
	defer game.moveMu.Unlock()

	outcome := MoveOutcome{Result: game.Game.Execute(seat, move)}
	game.UpdatedAt = time.Now()

	msg := outcome.Result.Message
	if outcome.Result.Success && (msg == canasta.MsgGameOver || msg == canasta.MsgGameOverDeckEmpty) {
		outcome.RoundOver = true
		outcome.FinalScores = game.Game.FinalScores()
		outcome.Match = game.Game.ResolveMatchStatus()

		if outcome.Match.MatchOver {
			game.Status = StatusCompleted
		} else {
			// Deal the next round straight away; pacing is a client
			// concern.
			game.Game.StartNextRound()
		}
	}

	return game, seat, outcome, nil
}

func (gm *GameManager) LeaveGame(roomCode, token string) (*ActiveGame, error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}
	if game.Status != StatusLobby {
		return nil, errors.New("GAME_STARTED: Use disconnect for active games")
	}

	seat := game.seatByToken(token)
	if seat == -1 {
		return nil, errors.New("NOT_IN_GAME: Invalid token")
	}

	game.Players[seat].Connected = false
	game.Players[seat].Ready = false
	game.UpdatedAt = time.Now()

	if seat == 0 {
		gm.promoteNewCreator(game)
	}

	return game, nil
}

func (gm *GameManager) GetGame(roomCode string) (*ActiveGame, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[roomCode]
	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}
	return game, nil
}

func (gm *GameManager) GetGameByToken(token string) (*ActiveGame, int, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	for _, game := range gm.games {
		if seat := game.seatByToken(token); seat != -1 {
			return game, seat, nil
		}
	}
	return nil, -1, errors.New("TOKEN_NOT_FOUND: Invalid session token")
}

func (gm *GameManager) ReconnectPlayer(token, roomCode string, seat int) (*ActiveGame, error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}
	if seat < 0 || seat >= len(game.Players) {
		return nil, errors.New("INVALID_PLAYER_ID: Seat out of range")
	}

	slot := &game.Players[seat]
	if slot.Token != token {
		return nil, errors.New("TOKEN_MISMATCH: Token does not match player slot")
	}
	if slot.Username == "" {
		return nil, errors.New("INVALID_SLOT: Slot is empty")
	}

	slot.Connected = true
	game.UpdatedAt = time.Now()

	if game.Status == StatusPaused {
		allConnected := true
		for _, s := range game.Players {
			if s.Username != "" && !s.Connected {
				allConnected = false
				break
			}
		}
		if allConnected {
			game.Status = StatusPlaying
		}
	}

	return game, nil
}

func (gm *GameManager) PauseGame(roomCode string) (bool, error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return false, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if game.Status == StatusPlaying {
		game.Status = StatusPaused
		game.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (gm *GameManager) MarkPlayerDisconnected(token string) (bool, *ActiveGame, int, error) {
	game, seat, err := gm.GetGameByToken(token)
	if err != nil {
		return false, nil, -1, err
	}

	game.Players[seat].Connected = false
	game.UpdatedAt = time.Now()

	gamePaused, err := gm.PauseGame(game.RoomCode)
	if err != nil {
		return false, nil, -1, err
	}

	return gamePaused, game, seat, nil
}

func (g *ActiveGame) seatByToken(token string) int {
	for i, slot := range g.Players {
		if slot.Token != "" && slot.Token == token {
			return i
		}
	}
	return -1
}

func (g *ActiveGame) allReady() bool {
	for _, slot := range g.Players {
		if slot.Username == "" || !slot.Ready {
			return false
		}
	}
	return true
}

func (gm *GameManager) promoteNewCreator(game *ActiveGame) {
	newCreatorSeat := -1
	for i := 1; i < len(game.Players); i++ {
		if game.Players[i].Username != "" && game.Players[i].Connected {
			newCreatorSeat = i
			break
		}
	}

	// If no one is left, mark the lobby for expiry.
	if newCreatorSeat == -1 {
		game.LobbyExpiry = time.Now()
		return
	}

	game.Players[0] = game.Players[newCreatorSeat]
	game.Players[newCreatorSeat] = PlayerSlot{}
	game.Players[0].Ready = false
}

func (gm *GameManager) validateUsername(game *ActiveGame, username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	for _, slot := range game.Players {
		if slot.Username == strings.TrimSpace(username) {
			return errors.New("USERNAME_TAKEN: Username already taken")
		}
	}
	return nil
}

// normalizeRules fills unset fields with the engine defaults so the lobby
// shows the effective rule set before the game starts.
func normalizeRules(rules canasta.Options) canasta.Options {
	d := canasta.DefaultOptions()
	if rules.PlayerCount == 0 {
		rules.PlayerCount = d.PlayerCount
	}
	if rules.WinScore == 0 {
		rules.WinScore = d.WinScore
	}
	if rules.MinCanastasOut == 0 {
		rules.MinCanastasOut = d.MinCanastasOut
	}
	if rules.DrawCount == 0 {
		rules.DrawCount = d.DrawCount
	}
	if rules.HandSize == 0 {
		rules.HandSize = d.HandSize
	}
	return rules
}
