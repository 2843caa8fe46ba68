package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"karaoke-live/internal/status"
	"karaoke-live/models"
	"karaoke-live/utils"
)

// Store is the authoritative queue entry table. Position assignment is
// serialized per venue and every status change is a compare-and-swap, so
// concurrent actors (singer, operator, timer, bridge) degrade to no-ops
// instead of lost updates.
type Store interface {
	Submit(ctx context.Context, venueID, userID, singerName, title, artist string) (*models.QueueEntry, error)
	Transition(ctx context.Context, entryID, expectedFrom, to string) (*models.QueueEntry, error)
	ListActive(ctx context.Context, venueID string) ([]models.QueueEntry, error)
	GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error)
}

const activeVenuesKey = "active_venues"

func entryKey(entryID string) string   { return fmt.Sprintf("entry:%s", entryID) }
func seqKey(venueID string) string     { return fmt.Sprintf("queue:seq:%s", venueID) }
func activeKey(venueID string) string  { return fmt.Sprintf("queue:active:%s", venueID) }
func pausedKey(venueID string) string  { return fmt.Sprintf("venue:paused:%s", venueID) }
func upnextKey(venueID string) string  { return fmt.Sprintf("queue:upnext:%s", venueID) }
func singingKey(venueID string) string { return fmt.Sprintf("queue:singing:%s", venueID) }

// submitScript assigns the next per-venue position and writes the entry in
// one atomic step. INCR on the venue sequence guarantees strictly increasing,
// never-reused positions under concurrent submission.
const submitScript = `
local pos = redis.call('INCR', KEYS[1])
redis.call('HSET', KEYS[2],
  'id', ARGV[1], 'venue', ARGV[2], 'user', ARGV[3], 'singer_name', ARGV[4],
  'title', ARGV[5], 'artist', ARGV[6], 'status', 'waiting',
  'position', pos, 'requested_at', ARGV[7], 'completed_at', '')
redis.call('ZADD', KEYS[3], pos, ARGV[1])
redis.call('SADD', KEYS[4], ARGV[2])
return pos
`

// transitionScript is the conditional status update. It refuses to move an
// entry whose current status differs from the caller's expectation, enforces
// the single up_next / now_singing holder per venue, stamps completed_at
// exactly once and drops terminal entries from the active index.
const transitionScript = `
local current = redis.call('HGET', KEYS[1], 'status')
if not current then
  return {'missing', ''}
end
if current ~= ARGV[1] then
  return {'conflict', current}
end
local venue = redis.call('HGET', KEYS[1], 'venue')
local id = redis.call('HGET', KEYS[1], 'id')
local upnextKey = 'queue:upnext:' .. venue
local singingKey = 'queue:singing:' .. venue
if ARGV[2] == 'up_next' then
  local holder = redis.call('GET', upnextKey)
  if holder and holder ~= id then
    return {'occupied', holder}
  end
  redis.call('SET', upnextKey, id)
elseif ARGV[2] == 'now_singing' then
  local holder = redis.call('GET', singingKey)
  if holder and holder ~= id then
    return {'occupied', holder}
  end
  redis.call('SET', singingKey, id)
  if redis.call('GET', upnextKey) == id then
    redis.call('DEL', upnextKey)
  end
elseif ARGV[2] == 'completed' or ARGV[2] == 'skipped' then
  redis.call('HSET', KEYS[1], 'completed_at', ARGV[3])
  redis.call('ZREM', 'queue:active:' .. venue, id)
  if redis.call('GET', upnextKey) == id then
    redis.call('DEL', upnextKey)
  end
  if redis.call('GET', singingKey) == id then
    redis.call('DEL', singingKey)
  end
end
redis.call('HSET', KEYS[1], 'status', ARGV[2])
return {'ok', current}
`

// QueueStore is the Redis-backed Store implementation.
type QueueStore struct {
	Redis *redis.Client

	// now and newID are swappable for tests.
	now   func() time.Time
	newID func() (string, error)
}

func NewQueueStore(redisClient *redis.Client) *QueueStore {
	return &QueueStore{
		Redis: redisClient,
		now:   time.Now,
		newID: func() (string, error) { return utils.GenerateCode(8) },
	}
}

var _ Store = (*QueueStore)(nil)

func (s *QueueStore) Submit(ctx context.Context, venueID, userID, singerName, title, artist string) (*models.QueueEntry, error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("Submit: generate id: %w", err)
	}

	requestedAt := s.now().UTC()

	keys := []string{seqKey(venueID), entryKey(id), activeKey(venueID), activeVenuesKey}
	args := []any{id, venueID, userID, singerName, title, artist, requestedAt.Format(time.RFC3339Nano)}

	res, err := s.Redis.Eval(ctx, submitScript, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("Submit: eval: %w", err)
	}

	pos, ok := res.(int64)
	if !ok {
		return nil, fmt.Errorf("Submit: unexpected script reply %T", res)
	}

	return &models.QueueEntry{
		ID:          id,
		VenueID:     venueID,
		UserID:      userID,
		SingerName:  singerName,
		Title:       title,
		Artist:      artist,
		Status:      models.StatusWaiting,
		Position:    int(pos),
		RequestedAt: requestedAt,
	}, nil
}

func (s *QueueStore) Transition(ctx context.Context, entryID, expectedFrom, to string) (*models.QueueEntry, error) {
	if !models.CanTransition(expectedFrom, to) {
		return nil, fmt.Errorf("Transition: illegal transition %s -> %s", expectedFrom, to)
	}

	completedAt := ""
	if models.IsTerminalStatus(to) {
		completedAt = s.now().UTC().Format(time.RFC3339Nano)
	}

	res, err := s.Redis.Eval(ctx, transitionScript, []string{entryKey(entryID)}, expectedFrom, to, completedAt).Result()
	if err != nil {
		return nil, fmt.Errorf("Transition: eval: %w", err)
	}

	reply, ok := res.([]any)
	if !ok || len(reply) != 2 {
		return nil, fmt.Errorf("Transition: unexpected script reply %T", res)
	}

	switch fmt.Sprint(reply[0]) {
	case "ok":
		return s.GetEntry(ctx, entryID)
	case "missing":
		return nil, status.ErrEntryNotFound
	case "conflict", "occupied":
		return nil, status.ErrTransitionConflict
	default:
		return nil, fmt.Errorf("Transition: unexpected script result %v", reply[0])
	}
}

func (s *QueueStore) ListActive(ctx context.Context, venueID string) ([]models.QueueEntry, error) {
	ids, err := s.Redis.ZRange(ctx, activeKey(venueID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ListActive: zrange: %w", err)
	}

	entries := make([]models.QueueEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.GetEntry(ctx, id)
		if err != nil {
			// Index and hash can briefly disagree during a concurrent
			// terminal transition; skip rather than fail the read.
			continue
		}
		if entry.IsTerminal() {
			continue
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

func (s *QueueStore) GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	fields, err := s.Redis.HGetAll(ctx, entryKey(entryID)).Result()
	if err != nil {
		return nil, fmt.Errorf("GetEntry: hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, status.ErrEntryNotFound
	}

	return parseEntry(fields)
}

func parseEntry(fields map[string]string) (*models.QueueEntry, error) {
	position, err := strconv.Atoi(fields["position"])
	if err != nil {
		return nil, fmt.Errorf("parseEntry: position %q: %w", fields["position"], err)
	}

	entry := &models.QueueEntry{
		ID:         fields["id"],
		VenueID:    fields["venue"],
		UserID:     fields["user"],
		SingerName: fields["singer_name"],
		Title:      fields["title"],
		Artist:     fields["artist"],
		Status:     fields["status"],
		Position:   position,
	}

	if v := fields["requested_at"]; v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parseEntry: requested_at %q: %w", v, err)
		}
		entry.RequestedAt = ts
	}
	if v := fields["completed_at"]; v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parseEntry: completed_at %q: %w", v, err)
		}
		entry.CompletedAt = ts
	}

	return entry, nil
}
