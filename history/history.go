package history

import (
	"context"
	"sort"
	"sync"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ElrondNetwork/elrond-go-core/core/check"
	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

var log = logger.GetOrCreate("history")

const (
	defaultCacheSize = 128
	defaultChunkSize = uint64(5000)
	defaultMaxBlocks = uint64(50000)

	defaultHistoryLimit = 10
	maxParallelReads    = 8
)

var (
	ErrNilReader        = errors.New("nil lottery reader")
	ErrInvalidChunkSize = errors.New("chunk size larger than the scanned range")
)

// ArgsHistoryProvider holds the arguments needed to create a HistoryProvider
type ArgsHistoryProvider struct {
	Reader    LotteryReader
	CacheSize int
	ChunkSize uint64
	MaxBlocks uint64
}

// HistoryProvider rebuilds the list of completed rounds. Claimed rounds never change again
// and are kept in an LRU cache together with their claim transaction.
type HistoryProvider struct {
	reader    LotteryReader
	cache     *lru.Cache
	chunkSize uint64
	maxBlocks uint64
}

// NewHistoryProvider creates a HistoryProvider. Zero values fall back to a 128 rounds cache
// and a 50000 blocks claim scan in 5000 blocks chunks.
func NewHistoryProvider(args ArgsHistoryProvider) (*HistoryProvider, error) {
	if check.IfNil(args.Reader) {
		return nil, ErrNilReader
	}

	cacheSize := args.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	chunkSize := args.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	maxBlocks := args.MaxBlocks
	if maxBlocks == 0 {
		maxBlocks = defaultMaxBlocks
	}
	if chunkSize > maxBlocks {
		return nil, ErrInvalidChunkSize
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	hp := &HistoryProvider{
		reader:    args.Reader,
		cache:     cache,
		chunkSize: chunkSize,
		maxBlocks: maxBlocks,
	}

	return hp, nil
}

// GetHistory returns the completed rounds with a selected winner among the last limit rounds, newest first.
// A limit lower than 1 means 10. Rounds that can not be read are skipped.
func (hp *HistoryProvider) GetHistory(ctx context.Context, limit int) ([]*data.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	currentRoundID, err := hp.reader.GetCurrentRoundID(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*data.HistoryEntry, 0)
	if currentRoundID <= 1 {
		return entries, nil
	}

	first := uint64(1)
	if currentRoundID > uint64(limit) {
		first = currentRoundID - uint64(limit)
	}

	var (
		wg  sync.WaitGroup
		mut sync.Mutex
	)
	slots := make(chan struct{}, maxParallelReads)
	for roundID := currentRoundID - 1; roundID >= first; roundID-- {
		wg.Add(1)
		slots <- struct{}{}
		go func(roundID uint64) {
			defer wg.Done()
			defer func() { <-slots }()

			entry, errRound := hp.GetRound(ctx, roundID)
			if errRound != nil {
				log.Warn("can not read round", "round", roundID, "error", errRound)
				return
			}
			if !entry.Ended || !entry.HasWinner() {
				return
			}

			mut.Lock()
			entries = append(entries, entry)
			mut.Unlock()
		}(roundID)
	}
	wg.Wait()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID > entries[j].ID
	})

	return entries, nil
}

// GetRound returns one round with its players count and, once claimed, its claim transaction
func (hp *HistoryProvider) GetRound(ctx context.Context, roundID uint64) (*data.HistoryEntry, error) {
	if cached, ok := hp.cache.Get(roundID); ok {
		entry := *cached.(*data.HistoryEntry)
		return &entry, nil
	}

	round, err := hp.reader.GetLotteryRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	entry := &data.HistoryEntry{Round: *round}
	players, err := hp.reader.GetPlayers(ctx, roundID)
	if err != nil {
		log.Debug("can not read players", "round", roundID, "error", err)
	} else {
		entry.TotalPlayers = len(players)
	}

	if round.Ended && round.HasWinner() && round.PrizeClaimed {
		entry.ClaimTransaction = hp.FindClaimTransaction(ctx, roundID)
		clone := *entry
		hp.cache.Add(roundID, &clone)
	}

	return entry, nil
}

// FindClaimTransaction scans the PrizeClaimed logs of the round newest block first.
// It returns the zero hash when nothing is found in the scanned range.
func (hp *HistoryProvider) FindClaimTransaction(ctx context.Context, roundID uint64) common.Hash {
	latest, err := hp.reader.GetBlockNumber(ctx)
	if err != nil {
		log.Debug("can not read block number", "error", err)
		return common.Hash{}
	}

	scanned := uint64(0)
	toBlock := latest
	for scanned < hp.maxBlocks && ctx.Err() == nil {
		fromBlock := uint64(0)
		if toBlock+1 > hp.chunkSize {
			fromBlock = toBlock + 1 - hp.chunkSize
		}

		events, errFilter := hp.reader.FilterPrizeClaimed(ctx, roundID, fromBlock, toBlock)
		if errFilter != nil {
			log.Debug("claim scan chunk failed", "round", roundID, "from", fromBlock, "to", toBlock, "error", errFilter)
		} else if len(events) > 0 {
			return events[len(events)-1].TxHash
		}

		if fromBlock == 0 {
			break
		}
		scanned += toBlock - fromBlock + 1
		toBlock = fromBlock - 1
	}

	return common.Hash{}
}

// CachedRounds returns how many immutable rounds are cached
func (hp *HistoryProvider) CachedRounds() int {
	return hp.cache.Len()
}

// IsInterfaceNil returns true if there is no value under the interface
func (hp *HistoryProvider) IsInterfaceNil() bool {
	return hp == nil
}
