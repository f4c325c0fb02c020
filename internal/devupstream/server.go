package devupstream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/okian/poolboard/pkg/logger"
	"github.com/robfig/cron/v3"
)

const eloStep = 16

// Server serves a mutable roster as the players API.
type Server struct {
	mu       sync.RWMutex
	roster   []Player
	token    string
	failRate float64
	log      logger.Logger
}

// NewServer creates a fake players API over roster.
func NewServer(cfg *Config, roster []Player) *Server {
	return &Server{
		roster:   roster,
		token:    cfg.Token,
		failRate: cfg.FailRate,
		log:      logger.Nop(),
	}
}

// WithLogger sets the logger and returns s.
func (s *Server) WithLogger(l logger.Logger) *Server {
	if l != nil {
		s.log = l
	}
	return s
}

// Handler returns the HTTP handler for GET /api/player.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/player", s.handlePlayers)
	return mux
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if s.token != "" && r.Header.Get("Authorization") != "Token "+s.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if s.failRate > 0 && float64(getRandomInt(1000))/1000 < s.failRate {
		s.log.Debug(r.Context(), "injecting players api failure")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	s.mu.RLock()
	body, err := json.Marshal(s.roster)
	s.mu.RUnlock()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// PlayMatch lets two random active players play one match; the winner takes
// eloStep points from the loser. It reports false when fewer than two players
// are active.
func (s *Server) PlayMatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]int, 0, len(s.roster))
	for i, p := range s.roster {
		if p.Active {
			active = append(active, i)
		}
	}
	if len(active) < 2 {
		return false
	}
	a := getRandomInt(len(active))
	b := getRandomInt(len(active) - 1)
	if b >= a {
		b++
	}
	winner, loser := &s.roster[active[a]], &s.roster[active[b]]
	winner.SeasonElo += eloStep
	loser.SeasonElo -= eloStep
	for _, p := range []*Player{winner, loser} {
		p.SeasonMatchCount++
		p.TotalMatchCount++
	}
	return true
}

// Roster returns a copy of the current roster.
func (s *Server) Roster() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Player, len(s.roster))
	copy(out, s.roster)
	return out
}

// Drift plays a match every interval until ctx is done. Intervals are
// rounded down to whole seconds, with a one second minimum.
func (s *Server) Drift(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	c := cron.New()
	c.Schedule(cron.Every(every), cron.FuncJob(func() {
		if s.PlayMatch() {
			s.log.Debug(ctx, "match played")
		}
	}))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}
