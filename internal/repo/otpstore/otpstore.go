package otpstore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/redisclient"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps outstanding passcodes in a per-identifier sorted set scored by
// creation time. Concurrent sends for one identifier simply coexist; the
// newest score wins at verification, which is the documented tie-break.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(client *redisclient.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Store{
		rdb: client.Raw(),
		ttl: ttl,
	}
}

func key(identifier string) string {
	return "otp:" + identifier
}

// member layout: "<uuid>:<code>". The uuid keeps duplicate codes distinct.
func member(id, code string) string {
	return id + ":" + code
}

func parseMember(m string, score float64) (otp.Record, bool) {
	id, code, ok := strings.Cut(m, ":")

	if !ok {
		return otp.Record{}, false
	}

	return otp.Record{
		ID:        id,
		Code:      code,
		CreatedAt: time.Unix(0, int64(score)).UTC(),
	}, true
}

func (s *Store) Add(ctx context.Context, identifier, code string) (otp.Record, error) {
	now := time.Now().UTC()

	rec := otp.Record{
		ID:        uuid.NewString(),
		Code:      code,
		CreatedAt: now,
	}

	k := key(identifier)

	err := s.rdb.ZAdd(ctx, k, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member(rec.ID, rec.Code),
	}).Err()

	if err != nil {
		return otp.Record{}, err
	}

	// refresh the key TTL so the whole set dies with its newest code
	if err := s.rdb.Expire(ctx, k, s.ttl).Err(); err != nil {
		return otp.Record{}, err
	}

	return rec, nil
}

func (s *Store) Latest(ctx context.Context, identifier string) (otp.Record, error) {
	k := key(identifier)
	now := time.Now().UTC()

	// drop codes past their window before looking at the newest one
	cutoff := now.Add(-s.ttl).UnixNano()

	err := s.rdb.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10)).Err()

	if err != nil {
		return otp.Record{}, err
	}

	zs, err := s.rdb.ZRevRangeWithScores(ctx, k, 0, 0).Result()

	if err != nil {
		return otp.Record{}, err
	}

	if len(zs) == 0 {
		return otp.Record{}, otp.ErrNoMatch
	}

	m, ok := zs[0].Member.(string)

	if !ok {
		return otp.Record{}, otp.ErrNoMatch
	}

	rec, ok := parseMember(m, zs[0].Score)

	if !ok {
		return otp.Record{}, otp.ErrNoMatch
	}

	return rec, nil
}

func (s *Store) Remove(ctx context.Context, identifier, id string) error {
	k := key(identifier)

	// the member embeds the code, so find it by its id prefix
	members, err := s.rdb.ZRange(ctx, k, 0, -1).Result()

	if err != nil {
		return err
	}

	for _, m := range members {
		if strings.HasPrefix(m, id+":") {
			return s.rdb.ZRem(ctx, k, m).Err()
		}
	}

	return nil
}
