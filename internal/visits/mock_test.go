package visits

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// --- Resolver Mock ---

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) FindNearest(ctx context.Context, userID string, point models.Point, radiusMeters float64) (*models.PlaceMatch, error) {
	args := m.Called(ctx, userID, point, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlaceMatch), args.Error(1)
}

// --- Broadcaster Mock ---

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, topic string, payload any) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

// --- Settings Mock ---

type mockSettings struct {
	mock.Mock
}

func (m *mockSettings) Load(ctx context.Context) (models.VisitSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.VisitSettings), args.Error(1)
}

// --- In-memory Store ---

type candidateKey struct {
	userID  string
	placeID int64
}

// memStore is a Store backed by maps. Transactions are serialized and roll
// back by restoring a copy of the state taken when they began.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID     int64
	visits     map[int64]models.VisitEvent
	candidates map[candidateKey]models.VisitCandidate
	places     map[int64]models.PlaceSnapshot
	fail       map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		visits:     make(map[int64]models.VisitEvent),
		candidates: make(map[candidateKey]models.VisitCandidate),
		places:     make(map[int64]models.PlaceSnapshot),
		fail:       make(map[string]error),
	}
}

func (s *memStore) addPlace(snap models.PlaceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places[snap.PlaceID] = snap
}

func (s *memStore) failOn(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = eris.Errorf("injected %s failure", op)
}

func (s *memStore) check(op string) error {
	return s.fail[op]
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	visits := make(map[int64]models.VisitEvent, len(s.visits))
	for k, v := range s.visits {
		visits[k] = v
	}
	candidates := make(map[candidateKey]models.VisitCandidate, len(s.candidates))
	for k, v := range s.candidates {
		candidates[k] = v
	}
	nextID := s.nextID
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.visits, s.candidates, s.nextID = visits, candidates, nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) OpenVisit(ctx context.Context, userID string, placeID int64) (*models.VisitEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("OpenVisit"); err != nil {
		return nil, err
	}
	for _, v := range s.visits {
		if v.UserID == userID && v.PlaceID == placeID && v.IsOpen() {
			v := v
			return &v, nil
		}
	}
	return nil, nil
}

func (s *memStore) TouchVisit(ctx context.Context, visitID int64, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("TouchVisit"); err != nil {
		return err
	}
	v := s.visits[visitID]
	if seenAt.After(v.LastSeenAt) {
		v.LastSeenAt = seenAt
	}
	s.visits[visitID] = v
	return nil
}

func (s *memStore) InsertVisit(ctx context.Context, visit *models.VisitEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("InsertVisit"); err != nil {
		return err
	}
	for _, v := range s.visits {
		if v.UserID == visit.UserID && v.PlaceID == visit.PlaceID && v.IsOpen() {
			return eris.New("unique constraint: open visit exists")
		}
	}
	s.nextID++
	visit.ID = s.nextID
	s.visits[visit.ID] = *visit
	return nil
}

func (s *memStore) Candidate(ctx context.Context, userID string, placeID int64) (*models.VisitCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Candidate"); err != nil {
		return nil, err
	}
	c, ok := s.candidates[candidateKey{userID, placeID}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *memStore) SaveCandidate(ctx context.Context, c models.VisitCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("SaveCandidate"); err != nil {
		return err
	}
	s.candidates[candidateKey{c.UserID, c.PlaceID}] = c
	return nil
}

func (s *memStore) DeleteCandidate(ctx context.Context, userID string, placeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("DeleteCandidate"); err != nil {
		return err
	}
	delete(s.candidates, candidateKey{userID, placeID})
	return nil
}

func (s *memStore) PlaceSnapshot(ctx context.Context, placeID int64) (*models.PlaceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("PlaceSnapshot"); err != nil {
		return nil, err
	}
	snap, ok := s.places[placeID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *memStore) CloseStaleVisits(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("CloseStaleVisits"); err != nil {
		return 0, err
	}
	var n int64
	for id, v := range s.visits {
		if v.UserID == userID && v.IsOpen() && v.LastSeenAt.Before(cutoff) {
			ended := v.LastSeenAt
			v.EndedAt = &ended
			s.visits[id] = v
			n++
		}
	}
	return n, nil
}

func (s *memStore) PurgeStaleCandidates(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("PurgeStaleCandidates"); err != nil {
		return 0, err
	}
	var n int64
	for k, c := range s.candidates {
		if k.userID == userID && c.LastHitAt.Before(cutoff) {
			delete(s.candidates, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) HasRecentVisit(ctx context.Context, userID string, placeID, excludeID int64, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("HasRecentVisit"); err != nil {
		return false, err
	}
	for id, v := range s.visits {
		if id != excludeID && v.UserID == userID && v.PlaceID == placeID && !v.LastSeenAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// visitsFor returns the user's visits to placeID ordered by id
func (s *memStore) visitsFor(userID string, placeID int64) []models.VisitEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.VisitEvent
	for _, v := range s.visits {
		if v.UserID == userID && v.PlaceID == placeID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) candidate(userID string, placeID int64) (models.VisitCandidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateKey{userID, placeID}]
	return c, ok
}

var _ Store = (*memStore)(nil)
