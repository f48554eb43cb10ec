package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"canasta-arena/internal/database"
)

type Server struct {
	port               int
	db                 database.Service
	connectionManager  *ConnectionManager
	gameManager        *GameManager
	sessionManager     *SessionManager
	persistenceManager *PersistenceManager
	rateLimiter        *RateLimiter
	connectionHealth   *ConnectionHealth
}

func NewServer() (*Server, *http.Server) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	dbService := database.New()
	persistenceManager := NewPersistenceManager(dbService.Pool())

	if err := persistenceManager.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	gameManager := NewGameManager()
	sessionManager := NewSessionManager()

	if err := loadPersistedState(persistenceManager, gameManager, sessionManager); err != nil {
		// Not fatal; the server can start with empty state.
		log.Printf("Warning: failed to load persisted state: %v", err)
	}

	s := &Server{
		port:               port,
		db:                 dbService,
		connectionManager:  NewConnectionManager(),
		gameManager:        gameManager,
		sessionManager:     sessionManager,
		persistenceManager: persistenceManager,
		rateLimiter:        NewRateLimiter(10, time.Second),
		connectionHealth:   NewConnectionHealth(),
	}

	go s.periodicSaveTask()
	go s.cleanupTask()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

// Shutdown saves every active game before the process exits.
func (s *Server) Shutdown(ctx context.Context) error {
	s.gameManager.mu.RLock()
	defer s.gameManager.mu.RUnlock()

	saved := 0
	for _, game := range s.gameManager.games {
		if err := s.persistenceManager.SaveGame(ctx, game); err != nil {
			log.Printf("Shutdown save failed for game %s: %v", game.RoomCode, err)
			continue
		}
		saved++
	}
	log.Printf("Shutdown: %d games persisted", saved)

	s.db.Close()
	return nil
}

func loadPersistedState(pm *PersistenceManager, gm *GameManager, sm *SessionManager) error {
	ctx := context.Background()

	games, err := pm.LoadAllActiveGames(ctx)
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}

	gm.mu.Lock()
	for _, game := range games {
		// Nobody is connected right after a restart.
		if game.Status == StatusPlaying {
			game.Status = StatusPaused
		}
		for i := range game.Players {
			game.Players[i].Connected = false
		}
		gm.games[game.RoomCode] = game
		log.Printf("Restored game: %s (status: %s)", game.RoomCode, game.Status)
	}
	gm.mu.Unlock()

	usedCodes, err := pm.LoadUsedRoomCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load room codes: %w", err)
	}

	gm.mu.Lock()
	gm.usedCodes = usedCodes
	gm.mu.Unlock()

	sessions, err := pm.LoadAllSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	for _, session := range sessions {
		sm.StoreSession(session)
	}

	log.Printf("Loaded %d games, %d room codes, %d sessions", len(games), len(usedCodes), len(sessions))
	return nil
}

// periodicSaveTask persists all active games every 30 seconds. The read
// lock is held for the whole save so a concurrent handler cannot modify a
// game mid-marshal.
func (s *Server) periodicSaveTask() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.gameManager.mu.RLock()

		savedCount := 0
		for _, game := range s.gameManager.games {
			if err := s.persistenceManager.SaveGame(context.Background(), game); err != nil {
				log.Printf("Periodic save failed for game %s: %v", game.RoomCode, err)
			} else {
				savedCount++
			}
		}

		s.gameManager.mu.RUnlock()

		log.Printf("Periodic save completed: %d games persisted", savedCount)
	}
}

// cleanupTask hourly deletes completed games older than 24 hours and prunes
// stale rate-limit entries.
func (s *Server) cleanupTask() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.rateLimiter.Cleanup()

		deleted, err := s.persistenceManager.CleanupOldGames(context.Background(), 24*time.Hour)
		if err != nil {
			log.Printf("Cleanup task failed: %v", err)
			continue
		}
		if deleted > 0 {
			log.Printf("Cleanup task: deleted %d old completed games", deleted)
		}
	}
}
