package match

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/auragrid/auragrid-server-go/internal/match/rules"
	"github.com/auragrid/auragrid-server-go/internal/match/unit"
)

// UnitSnapshot captures one unit's resolved state.
type UnitSnapshot struct {
	ID       int
	Name     string
	Owner    int
	X, Y     int
	HP       int
	MaxHP    int
	Aura     int
	AuraMax  int
	HasActed bool
	Statuses []unit.Status
}

// PoolSnapshot captures a player aura pool.
type PoolSnapshot struct {
	Player  int
	Current int
	Max     int
}

// Snapshot is a point-in-time copy of a match, suitable for replay
// recording, persistence, and divergence checks against the backend.
type Snapshot struct {
	MatchID      string
	TurnNumber   int
	Phase        rules.Phase
	ActivePlayer int
	Pools        []PoolSnapshot
	Units        []UnitSnapshot
	Zones        []Zone
	Timestamp    time.Time
}

// Snapshot copies the current match state. Units come out in spawn
// order, pools in player order, so two snapshots of identical states
// compare equal field by field.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	zones := make([]Zone, len(s.zones))
	copy(zones, s.zones)
	snap := &Snapshot{
		MatchID:      s.ID,
		TurnNumber:   s.machine.TurnNumber(),
		Phase:        s.machine.CurrentPhase(),
		ActivePlayer: s.machine.ActivePlayer(),
		Zones:        zones,
		Timestamp:    time.Now(),
	}
	for _, player := range []int{1, 2} {
		current, max := s.ledger.PlayerAura(player)
		snap.Pools = append(snap.Pools, PoolSnapshot{Player: player, Current: current, Max: max})
	}
	for _, u := range s.registry.All() {
		current, max := s.ledger.UnitAura(u.ID)
		statuses := make([]unit.Status, len(u.Statuses))
		copy(statuses, u.Statuses)
		snap.Units = append(snap.Units, UnitSnapshot{
			ID:       u.ID,
			Name:     u.Name,
			Owner:    u.Owner,
			X:        u.Pos.X,
			Y:        u.Pos.Y,
			HP:       u.HP,
			MaxHP:    u.MaxHP,
			Aura:     current,
			AuraMax:  max,
			HasActed: u.HasActed,
			Statuses: statuses,
		})
	}
	return snap
}

// Checksum hashes the deterministic representation. Timestamps and the
// match ID are excluded so the same game state always hashes the same.
func (snap *Snapshot) Checksum() string {
	sum := sha256.Sum256([]byte(snap.deterministicRepresentation()))
	return hex.EncodeToString(sum[:])
}

// deterministicRepresentation renders the snapshot as a canonical
// string, independent of slice construction order.
func (snap *Snapshot) deterministicRepresentation() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%d|%s|%d\n", snap.TurnNumber, snap.Phase, snap.ActivePlayer)

	pools := make([]PoolSnapshot, len(snap.Pools))
	copy(pools, snap.Pools)
	sort.Slice(pools, func(i, j int) bool { return pools[i].Player < pools[j].Player })
	for _, p := range pools {
		fmt.Fprintf(&buf, "POOL:%d|%d|%d\n", p.Player, p.Current, p.Max)
	}

	units := make([]UnitSnapshot, len(snap.Units))
	copy(units, snap.Units)
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	for _, u := range units {
		fmt.Fprintf(&buf, "UNIT:%d|%s|%d|%d,%d|%d/%d|%d/%d|%t\n",
			u.ID, u.Name, u.Owner, u.X, u.Y, u.HP, u.MaxHP, u.Aura, u.AuraMax, u.HasActed)
		statuses := make([]unit.Status, len(u.Statuses))
		copy(statuses, u.Statuses)
		sort.Slice(statuses, func(i, j int) bool { return statuses[i].Kind < statuses[j].Kind })
		for _, st := range statuses {
			fmt.Fprintf(&buf, "  STATUS:%s|%d|%d\n", st.Kind, st.TurnsLeft, st.Amount)
		}
	}

	zones := make([]Zone, len(snap.Zones))
	copy(zones, snap.Zones)
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Pos.X != zones[j].Pos.X {
			return zones[i].Pos.X < zones[j].Pos.X
		}
		return zones[i].Pos.Y < zones[j].Pos.Y
	})
	for _, z := range zones {
		fmt.Fprintf(&buf, "ZONE:%d,%d|%d|%d|%d|%d\n",
			z.Pos.X, z.Pos.Y, z.Radius, z.Damage, z.TurnsLeft, z.Owner)
	}

	return buf.String()
}

// SerializeToBytes gob-encodes the snapshot for replay files and
// persistence.
func (snap *Snapshot) SerializeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeSnapshot decodes a gob-encoded snapshot.
func DeserializeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Replay is a sequence of snapshots with a playback cursor.
type Replay struct {
	MatchID string

	mu      sync.RWMutex
	states  []*Snapshot
	current int
}

// NewReplay creates an empty replay for a match.
func NewReplay(matchID string) *Replay {
	return &Replay{MatchID: matchID}
}

// RecordState appends a snapshot.
func (r *Replay) RecordState(snap *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, snap)
}

// Start rewinds playback to the beginning.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = 0
}

// Next returns the next snapshot, or nil at the end.
func (r *Replay) Next() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current >= len(r.states) {
		return nil
	}
	snap := r.states[r.current]
	r.current++
	return snap
}

// Previous steps the cursor back, or returns nil at the start.
func (r *Replay) Previous() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == 0 {
		return nil
	}
	r.current--
	return r.states[r.current]
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// StateAt returns the snapshot at index, or nil if out of range.
func (r *Replay) StateAt(index int) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.states) {
		return nil
	}
	return r.states[index]
}

// replayMetadata heads a replay file.
type replayMetadata struct {
	MatchID    string
	Timestamp  time.Time
	Version    int
	StateCount int
}

const replayVersion = 1

// SaveToFile writes the replay to <dir>/<match-id>.replay, gzipped gob.
func (r *Replay) SaveToFile(dir string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create replay directory: %w", err)
	}
	file, err := os.Create(filepath.Join(dir, r.MatchID+".replay"))
	if err != nil {
		return fmt.Errorf("failed to create replay file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	defer gz.Close()

	enc := gob.NewEncoder(gz)
	meta := replayMetadata{
		MatchID:    r.MatchID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		StateCount: len(r.states),
	}
	if err := enc.Encode(&meta); err != nil {
		return fmt.Errorf("failed to encode replay metadata: %w", err)
	}
	for i, snap := range r.states {
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
	}
	return nil
}

// LoadReplayFromFile reads a replay back from disk.
func LoadReplayFromFile(dir, matchID string) (*Replay, error) {
	file, err := os.Open(filepath.Join(dir, matchID+".replay"))
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}
	defer gz.Close()

	dec := gob.NewDecoder(gz)
	var meta replayMetadata
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode replay metadata: %w", err)
	}
	if meta.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version %d", meta.Version)
	}

	replay := NewReplay(meta.MatchID)
	for i := 0; i < meta.StateCount; i++ {
		var snap Snapshot
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		replay.states = append(replay.states, &snap)
	}
	return replay, nil
}

// Recorder tracks per-match replays keyed by match ID.
type Recorder struct {
	logger *zap.Logger

	mu      sync.RWMutex
	replays map[string]*Replay
	saveDir string
}

// NewRecorder creates a replay recorder saving into saveDir.
func NewRecorder(saveDir string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger, replays: make(map[string]*Replay), saveDir: saveDir}
}

// Record snapshots the session and appends to its replay, creating one
// on first use.
func (rec *Recorder) Record(s *Session) {
	snap := s.Snapshot()

	rec.mu.Lock()
	replay, ok := rec.replays[s.ID]
	if !ok {
		replay = NewReplay(s.ID)
		rec.replays[s.ID] = replay
	}
	rec.mu.Unlock()

	replay.RecordState(snap)
}

// Get returns the replay for a match, if any.
func (rec *Recorder) Get(matchID string) (*Replay, bool) {
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	replay, ok := rec.replays[matchID]
	return replay, ok
}

// Save flushes a match's replay to disk and drops it from memory.
func (rec *Recorder) Save(matchID string) error {
	rec.mu.Lock()
	replay, ok := rec.replays[matchID]
	delete(rec.replays, matchID)
	rec.mu.Unlock()

	if !ok {
		return fmt.Errorf("no replay recorded for match %s", matchID)
	}
	if err := replay.SaveToFile(rec.saveDir); err != nil {
		return err
	}
	rec.logger.Info("saved replay",
		zap.String("match_id", matchID),
		zap.Int("states", replay.Size()),
		zap.String("dir", rec.saveDir),
	)
	return nil
}
