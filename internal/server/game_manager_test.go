package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"canasta-arena/internal/canasta"
)

func TestNewGameManager(t *testing.T) {
	assert := assert.New(t)

	gm := NewGameManager()
	assert.NotNil(gm)
	assert.NotNil(gm.games)
	assert.NotNil(gm.usedCodes)
	assert.Empty(gm.games)
}

func TestCreateGameDefaults(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	game, token, err := gm.CreateGame("Alice", canasta.Options{})
	assert.NoError(err)
	assert.NotEmpty(token)
	assert.Equal(StatusLobby, game.Status)
	assert.Nil(game.Game, "engine must not exist before start")
	assert.Len(game.Players, 4)
	assert.Equal("Alice", game.Players[0].Username)
	assert.True(game.Players[0].Connected)
	assert.NoError(ValidateRoomCode(game.RoomCode))

	// Unset rule fields are filled so the lobby shows the effective rules.
	assert.Equal(5000, game.Rules.WinScore)
	assert.Equal(2, game.Rules.MinCanastasOut)
}

func TestCreateGameTwoPlayerRules(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	game, _, err := gm.CreateGame("Alice", canasta.Options{PlayerCount: 2, WinScore: 3000})
	assert.NoError(err)
	assert.Len(game.Players, 2)
	assert.Equal(3000, game.Rules.WinScore)
}

func TestCreateGameRejectsBadInput(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	_, _, err := gm.CreateGame("", canasta.Options{})
	assert.Error(err)

	_, _, err = gm.CreateGame("Alice", canasta.Options{PlayerCount: 3})
	assert.Error(err)
	assert.Contains(err.Error(), "INVALID_RULES")
}

func TestJoinGame(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	game, _, err := gm.CreateGame("Alice", canasta.Options{PlayerCount: 2})
	assert.NoError(err)

	joined, token, seat, err := gm.JoinGame(game.RoomCode, "Bob")
	assert.NoError(err)
	assert.Equal(game.RoomCode, joined.RoomCode)
	assert.NotEmpty(token)
	assert.Equal(1, seat)
	assert.Equal("Bob", joined.Players[1].Username)

	// A well-formed but unknown code is not found.
	_, _, _, err = gm.JoinGame("wxyz", "Carol")
	assert.Error(err)
	assert.Contains(err.Error(), "ROOM_NOT_FOUND")
}

func TestJoinGameRejectsDuplicateUsername(t *testing.T) {
	gm := NewGameManager()
	game, _, _ := gm.CreateGame("Alice", canasta.Options{PlayerCount: 2})

	_, _, _, err := gm.JoinGame(game.RoomCode, "Alice")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "USERNAME_TAKEN")
}

func TestJoinGameRejectsFullLobby(t *testing.T) {
	gm := NewGameManager()
	game, _, _ := gm.CreateGame("Alice", canasta.Options{PlayerCount: 2})
	gm.JoinGame(game.RoomCode, "Bob")

	_, _, _, err := gm.JoinGame(game.RoomCode, "Carol")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ROOM_FULL")
}

// startTwoPlayerGame walks the whole lobby flow and returns the room and both
// tokens.
func startTwoPlayerGame(t *testing.T, gm *GameManager) (*ActiveGame, string, string) {
	t.Helper()

	game, creatorToken, err := gm.CreateGame("Alice", canasta.Options{PlayerCount: 2})
	assert.NoError(t, err)

	_, joinerToken, _, err := gm.JoinGame(game.RoomCode, "Bob")
	assert.NoError(t, err)

	_, allReady, err := gm.SetReady(game.RoomCode, creatorToken, true)
	assert.NoError(t, err)
	assert.False(t, allReady)

	_, allReady, err = gm.SetReady(game.RoomCode, joinerToken, true)
	assert.NoError(t, err)
	assert.True(t, allReady)

	assert.NoError(t, gm.StartGame(game.RoomCode))
	return game, creatorToken, joinerToken
}

func TestStartGameFlow(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	game, _, _ := startTwoPlayerGame(t, gm)

	assert.Equal(StatusPlaying, game.Status)
	assert.NotNil(game.Game)
	assert.Equal(2, game.Game.PlayerCount())

	// The lobby is closed to late joiners.
	_, _, _, err := gm.JoinGame(game.RoomCode, "Carol")
	assert.Error(err)
	assert.Contains(err.Error(), "GAME_ALREADY_STARTED")
}

func TestStartGameRequiresEveryoneReady(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	game, creatorToken, _ := gm.CreateGame("Alice", canasta.Options{PlayerCount: 2})
	gm.JoinGame(game.RoomCode, "Bob")
	gm.SetReady(game.RoomCode, creatorToken, true)

	err := gm.StartGame(game.RoomCode)
	assert.Error(err)
	assert.Contains(err.Error(), "NOT_ALL_READY")
}

func TestExecuteMove(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	game, creatorToken, joinerToken := startTwoPlayerGame(t, gm)

	// Seat 0 opens the first round, so Bob's draw is rejected by the
	// engine but is not a transport error.
	_, seat, outcome, err := gm.ExecuteMove(joinerToken, canasta.Move{Type: canasta.MoveDrawFromDeck})
	assert.NoError(err)
	assert.Equal(1, seat)
	assert.False(outcome.Result.Success)
	assert.Contains(outcome.Result.Message, "NOT_YOUR_TURN")

	_, seat, outcome, err = gm.ExecuteMove(creatorToken, canasta.Move{Type: canasta.MoveDrawFromDeck})
	assert.NoError(err)
	assert.Equal(0, seat)
	assert.True(outcome.Result.Success)
	assert.False(outcome.RoundOver)

	_, _, outcome, err = gm.ExecuteMove(creatorToken, canasta.Move{Type: canasta.MoveDiscard, CardIndex: 0})
	assert.NoError(err)
	assert.True(outcome.Result.Success)
	assert.Equal(1, game.Game.CurrentPlayer())
}

func TestExecuteMoveRejectsUnknownToken(t *testing.T) {
	gm := NewGameManager()
	startTwoPlayerGame(t, gm)

	_, _, _, err := gm.ExecuteMove("bogus", canasta.Move{Type: canasta.MoveDrawFromDeck})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_NOT_FOUND")
}

func TestExecuteMoveRejectsLobbyGame(t *testing.T) {
	gm := NewGameManager()
	_, token, _ := gm.CreateGame("Alice", canasta.Options{PlayerCount: 2})

	_, _, _, err := gm.ExecuteMove(token, canasta.Move{Type: canasta.MoveDrawFromDeck})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATUS")
}

func TestDisconnectPausesAndReconnectResumes(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	game, creatorToken, _ := startTwoPlayerGame(t, gm)

	paused, pausedGame, seat, err := gm.MarkPlayerDisconnected(creatorToken)
	assert.NoError(err)
	assert.True(paused)
	assert.Equal(0, seat)
	assert.Equal(StatusPaused, pausedGame.Status)
	assert.False(game.Players[0].Connected)

	// Moves are blocked while paused.
	_, _, _, err = gm.ExecuteMove(creatorToken, canasta.Move{Type: canasta.MoveDrawFromDeck})
	assert.Error(err)

	_, err = gm.ReconnectPlayer(creatorToken, game.RoomCode, 0)
	assert.NoError(err)
	assert.Equal(StatusPlaying, game.Status)
	assert.True(game.Players[0].Connected)
}

func TestReconnectRejectsTokenMismatch(t *testing.T) {
	gm := NewGameManager()
	game, _, _ := startTwoPlayerGame(t, gm)

	_, err := gm.ReconnectPlayer("wrong-token", game.RoomCode, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_MISMATCH")
}

func TestLeaveGamePromotesNewCreator(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager()

	game, creatorToken, _ := gm.CreateGame("Alice", canasta.Options{PlayerCount: 2})
	gm.JoinGame(game.RoomCode, "Bob")

	left, err := gm.LeaveGame(game.RoomCode, creatorToken)
	assert.NoError(err)
	assert.Equal("Bob", left.Players[0].Username)
	assert.False(left.Players[0].Ready, "promoted creator must re-ready")
	assert.Empty(left.Players[1].Username)
}
