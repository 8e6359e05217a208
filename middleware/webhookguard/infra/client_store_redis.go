package infra

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"

	"github.com/redis/go-redis/v9"
)

// recordAndCheckScript faz poda, contagem e append/bloqueio numa única
// execução atômica no Redis.
//
// KEYS[1] histórico (zset, score = ms), KEYS[2] bloqueio (string = ms imposto)
// ARGV: now, corte da hora, corte do minuto (exclusivo), por-minuto, por-hora,
// duração do bloqueio (ms), membro único.
var recordAndCheckScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local minute = redis.call('ZCOUNT', KEYS[1], ARGV[3], '+inf')
local hour = redis.call('ZCARD', KEYS[1])
local limited = 0
if minute + 1 >= tonumber(ARGV[4]) then
  limited = 1
elseif hour + 1 >= tonumber(ARGV[5]) then
  limited = 2
end
if limited > 0 then
  redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[6])
else
  redis.call('ZADD', KEYS[1], ARGV[1], ARGV[7])
  redis.call('PEXPIRE', KEYS[1], 3600000)
end
return {limited, minute, hour}
`)

// isBlockedScript: bloqueio vencido (pelo relógio do chamador) é apagado na leitura.
var isBlockedScript = redis.NewScript(`
local imposed = redis.call('GET', KEYS[1])
if not imposed then
  return 0
end
if tonumber(ARGV[1]) - tonumber(imposed) >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return 0
end
return 1
`)

// RedisClientStore guarda o estado do guard no Redis para que várias
// instâncias do gateway compartilhem histórico e bloqueios.
//
// O relógio continua sendo o do chamador (ms); o TTL do Redis é só uma rede
// de segurança para chaves abandonadas.
type RedisClientStore struct {
	rdb    *redis.Client
	prefix string
	// instance diferencia membros do zset entre processos no mesmo ms
	instance string
	seq      atomic.Uint64
}

var _ domain.ClientStore = (*RedisClientStore)(nil)

type RedisStoreOption func(*RedisClientStore)

func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisClientStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisClientStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisClientStore {
	s := &RedisClientStore{rdb: rdb, prefix: "webhookguard", instance: rand.Text()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hash tag {key} mantém as duas chaves de um cliente no mesmo slot (cluster).
func (s *RedisClientStore) historyKey(key domain.Key) string {
	return s.prefix + ":{" + string(key) + "}:hist"
}

func (s *RedisClientStore) blockKey(key domain.Key) string {
	return s.prefix + ":{" + string(key) + "}:block"
}

func (s *RedisClientStore) IsBlocked(ctx context.Context, key domain.Key, now time.Time, blockFor time.Duration) (bool, error) {
	n, err := isBlockedScript.Run(ctx, s.rdb,
		[]string{s.blockKey(key)},
		now.UnixMilli(), blockFor.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis is-blocked %q: %w", key, err)
	}
	return n == 1, nil
}

func (s *RedisClientStore) RecordAndCheck(ctx context.Context, key domain.Key, now time.Time, lim domain.Limits) (domain.Verdict, error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + "-" + s.instance + "-" + strconv.FormatUint(s.seq.Add(1), 10)

	res, err := recordAndCheckScript.Run(ctx, s.rdb,
		[]string{s.historyKey(key), s.blockKey(key)},
		nowMs,
		nowMs-domain.HistoryWindow.Milliseconds(),
		"("+strconv.FormatInt(nowMs-domain.MinuteWindow.Milliseconds(), 10),
		lim.PerMinute,
		lim.PerHour,
		lim.BlockDuration.Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("redis record %q: %w", key, err)
	}
	if len(res) != 3 {
		return domain.Verdict{}, errors.New("redis record: unexpected script reply")
	}

	v := domain.Verdict{MinuteCount: int(res[1]), HourCount: int(res[2])}
	switch res[0] {
	case 1:
		v.Limited, v.Window = true, domain.WindowMinute
	case 2:
		v.Limited, v.Window = true, domain.WindowHour
	}
	return v, nil
}

// ClientStats varre as chaves do prefixo (SCAN); pensado para o endpoint de
// admin, não para o caminho quente.
func (s *RedisClientStore) ClientStats(ctx context.Context) (domain.ClientStats, error) {
	var st domain.ClientStats

	iter := s.rdb.Scan(ctx, 0, s.prefix+":{*}:*", 200).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		switch {
		case strings.HasSuffix(k, ":hist"):
			n, err := s.rdb.ZCard(ctx, k).Result()
			if err != nil {
				return domain.ClientStats{}, fmt.Errorf("redis zcard %q: %w", k, err)
			}
			st.ActiveClients++
			st.TrackedRequests += int(n)
		case strings.HasSuffix(k, ":block"):
			st.BlockedClients++
		}
	}
	if err := iter.Err(); err != nil {
		return domain.ClientStats{}, fmt.Errorf("redis scan: %w", err)
	}
	return st, nil
}
