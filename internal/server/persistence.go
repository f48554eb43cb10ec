package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PersistenceManager saves and restores server state so games survive a
// restart. Games are stored as JSON blobs; the engine itself defines the
// serialized form.
type PersistenceManager struct {
	pool *pgxpool.Pool
}

func NewPersistenceManager(pool *pgxpool.Pool) *PersistenceManager {
	return &PersistenceManager{pool: pool}
}

// EnsureSchema creates the tables on startup. The schema is small and
// idempotent, so there is no migration tooling to run.
func (pm *PersistenceManager) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS games (
			room_code  TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			game_data  JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			room_code  TEXT NOT NULL REFERENCES games(room_code) ON DELETE CASCADE,
			seat       INT NOT NULL,
			username   TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS room_codes (
			code       TEXT PRIMARY KEY,
			in_use     BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := pm.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SaveGame upserts an ActiveGame.
func (pm *PersistenceManager) SaveGame(ctx context.Context, game *ActiveGame) error {
	gameData, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to serialize game: %w", err)
	}

	query := `
		INSERT INTO games (room_code, status, game_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_code) DO UPDATE
		SET status = EXCLUDED.status,
		    game_data = EXCLUDED.game_data,
		    updated_at = EXCLUDED.updated_at
	`

	_, err = pm.pool.Exec(ctx, query,
		game.RoomCode,
		string(game.Status),
		gameData,
		game.CreatedAt,
		game.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", game.RoomCode, err)
	}
	return nil
}

func (pm *PersistenceManager) LoadGame(ctx context.Context, roomCode string) (*ActiveGame, error) {
	var gameData []byte
	err := pm.pool.QueryRow(ctx,
		`SELECT game_data FROM games WHERE room_code = $1`, roomCode).Scan(&gameData)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game not found: %s", roomCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", roomCode, err)
	}

	var game ActiveGame
	if err := json.Unmarshal(gameData, &game); err != nil {
		return nil, fmt.Errorf("failed to deserialize game %s: %w", roomCode, err)
	}
	return &game, nil
}

// LoadAllActiveGames restores every non-completed game on startup.
func (pm *PersistenceManager) LoadAllActiveGames(ctx context.Context) ([]*ActiveGame, error) {
	rows, err := pm.pool.Query(ctx, `
		SELECT game_data FROM games
		WHERE status != $1
		ORDER BY updated_at DESC
	`, string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to query active games: %w", err)
	}
	defer rows.Close()

	var games []*ActiveGame
	for rows.Next() {
		var gameData []byte
		if err := rows.Scan(&gameData); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}

		var game ActiveGame
		if err := json.Unmarshal(gameData, &game); err != nil {
			// Keep going; one corrupt row should not block startup.
			log.Printf("Warning: failed to deserialize game: %v", err)
			continue
		}
		games = append(games, &game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}
	return games, nil
}

// DeleteGame removes a game; sessions cascade, and the room code is freed.
func (pm *PersistenceManager) DeleteGame(ctx context.Context, roomCode string) error {
	tag, err := pm.pool.Exec(ctx, `DELETE FROM games WHERE room_code = $1`, roomCode)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", roomCode, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game not found: %s", roomCode)
	}

	if err := pm.SaveRoomCode(ctx, roomCode, false); err != nil {
		log.Printf("Warning: failed to mark room code %s as unused: %v", roomCode, err)
	}
	return nil
}

func (pm *PersistenceManager) SaveSession(ctx context.Context, session SessionInfo) error {
	query := `
		INSERT INTO sessions (token, room_code, seat, username, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE
		SET room_code = EXCLUDED.room_code,
		    seat = EXCLUDED.seat,
		    username = EXCLUDED.username
	`

	_, err := pm.pool.Exec(ctx, query,
		session.Token, session.RoomCode, session.Seat, session.Username, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.Token, err)
	}
	return nil
}

func (pm *PersistenceManager) LoadSession(ctx context.Context, token string) (*SessionInfo, error) {
	var session SessionInfo
	err := pm.pool.QueryRow(ctx,
		`SELECT token, room_code, seat, username FROM sessions WHERE token = $1`, token).
		Scan(&session.Token, &session.RoomCode, &session.Seat, &session.Username)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New("TOKEN_NOT_FOUND: Invalid session token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", token, err)
	}
	return &session, nil
}

func (pm *PersistenceManager) LoadAllSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := pm.pool.Query(ctx, `SELECT token, room_code, seat, username FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var session SessionInfo
		if err := rows.Scan(&session.Token, &session.RoomCode, &session.Seat, &session.Username); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

func (pm *PersistenceManager) DeleteSession(ctx context.Context, token string) error {
	if _, err := pm.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", token, err)
	}
	return nil
}

func (pm *PersistenceManager) SaveRoomCode(ctx context.Context, code string, inUse bool) error {
	query := `
		INSERT INTO room_codes (code, in_use, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET in_use = EXCLUDED.in_use
	`

	if _, err := pm.pool.Exec(ctx, query, code, inUse, time.Now()); err != nil {
		return fmt.Errorf("failed to save room code %s: %w", code, err)
	}
	return nil
}

// LoadUsedRoomCodes restores the in-use code set on startup.
func (pm *PersistenceManager) LoadUsedRoomCodes(ctx context.Context) (map[string]bool, error) {
	rows, err := pm.pool.Query(ctx, `SELECT code, in_use FROM room_codes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query room codes: %w", err)
	}
	defer rows.Close()

	usedCodes := make(map[string]bool)
	for rows.Next() {
		var code string
		var inUse bool
		if err := rows.Scan(&code, &inUse); err != nil {
			return nil, fmt.Errorf("failed to scan room code row: %w", err)
		}
		usedCodes[code] = inUse
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room code rows: %w", err)
	}
	return usedCodes, nil
}

// CleanupOldGames deletes completed games past the retention window and
// frees their room codes.
func (pm *PersistenceManager) CleanupOldGames(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	rows, err := pm.pool.Query(ctx,
		`SELECT room_code FROM games WHERE status = $1 AND updated_at < $2`,
		string(StatusCompleted), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query old games: %w", err)
	}

	var roomCodes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan room code: %w", err)
		}
		roomCodes = append(roomCodes, code)
	}
	rows.Close()

	tag, err := pm.pool.Exec(ctx,
		`DELETE FROM games WHERE status = $1 AND updated_at < $2`,
		string(StatusCompleted), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old games: %w", err)
	}

	for _, code := range roomCodes {
		if err := pm.SaveRoomCode(ctx, code, false); err != nil {
			log.Printf("Warning: failed to mark room code %s as unused: %v", code, err)
		}
	}

	return int(tag.RowsAffected()), nil
}
