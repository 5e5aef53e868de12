package poller

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ElrondNetwork/elrond-go-core/core/check"
	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var log = logger.GetOrCreate("poller")

// ArgsRoundPoller holds the arguments needed to create a RoundPoller
type ArgsRoundPoller struct {
	Reader         LotteryReader
	Player         common.Address
	Interval       time.Duration
	EventsInterval time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     uint64
	Timeout        time.Duration
}

// RoundPoller is the single source of lottery snapshots. It refreshes on a fixed interval
// and whenever a contract event changes the round, and publishes every result to its subscribers.
type RoundPoller struct {
	reader         LotteryReader
	player         common.Address
	interval       time.Duration
	eventsInterval time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxRetries     uint64
	timeout        time.Duration
	now            func() time.Time

	mutSnapshots sync.RWMutex
	snapshots    map[common.Address]*data.Snapshot

	mutSubscribers sync.Mutex
	subscribers    map[int]*subscriber
	nextID         int

	mutRun  sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan string
}

// NewRoundPoller creates a poller. Zero values fall back to a 5s refresh and 3 retries backing off from 1s up to 30s.
func NewRoundPoller(args ArgsRoundPoller) (*RoundPoller, error) {
	if check.IfNil(args.Reader) {
		return nil, ErrNilReader
	}
	if args.Interval < 0 || args.EventsInterval < 0 {
		return nil, ErrInvalidPeriod
	}

	p := &RoundPoller{
		reader:         args.Reader,
		player:         args.Player,
		interval:       valueOrDefault(args.Interval, 5*time.Second),
		eventsInterval: valueOrDefault(args.EventsInterval, 4*time.Second),
		initialBackoff: valueOrDefault(args.InitialBackoff, time.Second),
		maxBackoff:     valueOrDefault(args.MaxBackoff, 30*time.Second),
		maxRetries:     args.MaxRetries,
		timeout:        args.Timeout,
		now:            time.Now,
		snapshots:      make(map[common.Address]*data.Snapshot),
		subscribers:    make(map[int]*subscriber),
		trigger:        make(chan string, 1),
	}

	if p.maxRetries == 0 {
		p.maxRetries = defaultMaxRetries
	}

	return p, nil
}

func valueOrDefault(value time.Duration, def time.Duration) time.Duration {
	if value == 0 {
		return def
	}

	return value
}

func (p *RoundPoller) newBackOff(ctx context.Context) backoff.BackOffContext {
	expBackOff := backoff.NewExponentialBackOff()
	expBackOff.InitialInterval = p.initialBackoff
	expBackOff.Multiplier = 2
	expBackOff.RandomizationFactor = 0
	expBackOff.MaxInterval = p.maxBackoff
	expBackOff.MaxElapsedTime = 0
	expBackOff.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(expBackOff, p.maxRetries), ctx)
}

// retry runs a required read until it succeeds, the retries are exhausted or the context is done
func (p *RoundPoller) retry(ctx context.Context, name string, operation func() error) error {
	op := func() error {
		err := operation()
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Debug("read failed, retrying", "read", name, "wait", wait, "error", err)
	}

	return backoff.RetryNotify(op, p.newBackOff(ctx), notify)
}

// Fetch reads a fresh snapshot for the player. Global reads are required and retried,
// the players list and the player tickets are optional and degrade to empty values.
func (p *RoundPoller) Fetch(ctx context.Context, player common.Address) (*data.Snapshot, error) {
	snapshot := &data.Snapshot{Player: player}

	var (
		wg       sync.WaitGroup
		mutErr   sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mutErr.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mutErr.Unlock()
	}

	reads := []struct {
		name string
		op   func() error
	}{
		{"getCurrentRoundId", func() (err error) {
			snapshot.CurrentRoundID, err = p.reader.GetCurrentRoundID(ctx)
			return
		}},
		{"getTicketPrice", func() (err error) {
			var price *big.Int
			price, err = p.reader.GetTicketPrice(ctx)
			snapshot.TicketPrice = price
			return
		}},
		{"getMaxTicketsPerPurchase", func() (err error) {
			snapshot.MaxTickets, err = p.reader.GetMaxTicketsPerPurchase(ctx)
			return
		}},
		{"getLotteryDuration", func() (err error) {
			snapshot.LotteryDuration, err = p.reader.GetLotteryDuration(ctx)
			return
		}},
	}

	wg.Add(len(reads))
	for _, read := range reads {
		go func(name string, op func() error) {
			defer wg.Done()

			err := p.retry(ctx, name, op)
			if err != nil {
				setErr(errors.Wrap(err, name))
			}
		}(read.name, read.op)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	err := p.retry(ctx, "getLotteryRound", func() error {
		round, errRound := p.reader.GetLotteryRound(ctx, snapshot.CurrentRoundID)
		if errRound != nil {
			return errRound
		}
		snapshot.Round = round
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "getLotteryRound")
	}

	p.fetchOptional(ctx, snapshot)
	snapshot.FetchedAt = p.now()

	return snapshot, nil
}

func (p *RoundPoller) fetchOptional(ctx context.Context, snapshot *data.Snapshot) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		players, err := p.reader.GetPlayers(ctx, snapshot.CurrentRoundID)
		if err != nil {
			log.Warn("can not read players", "round", snapshot.CurrentRoundID, "error", err)
			players = make([]common.Address, 0)
		}
		snapshot.Players = players
		snapshot.TotalPlayers = len(players)
	}()

	if snapshot.Player != (common.Address{}) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tickets, err := p.reader.GetPlayerTickets(ctx, snapshot.Player, snapshot.CurrentRoundID)
			if err != nil {
				log.Warn("can not read player tickets", "player", snapshot.Player.Hex(), "round", snapshot.CurrentRoundID, "error", err)
				tickets = 0
			}
			snapshot.PlayerTickets = tickets
		}()
	}

	wg.Wait()
}

// Refresh reloads the snapshot of the configured player and publishes it
func (p *RoundPoller) Refresh(ctx context.Context) error {
	_, err := p.refresh(ctx, p.player, ReasonManual, nil)
	return err
}

// RefreshPlayer reloads the snapshot cached for the player and returns it.
// On failure the previous snapshot, marked stale, is returned together with the error.
func (p *RoundPoller) RefreshPlayer(ctx context.Context, player common.Address) (*data.Snapshot, error) {
	return p.refresh(ctx, player, ReasonManual, nil)
}

func (p *RoundPoller) refresh(ctx context.Context, player common.Address, reason string, event *data.Event) (*data.Snapshot, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	snapshot, err := p.Fetch(ctx, player)
	if err != nil {
		log.Warn("refresh failed", "player", player.Hex(), "reason", reason, "error", err)

		stale := p.markStale(player, err)
		p.publish(data.Update{Snapshot: stale, Event: event, Reason: reason, Err: err})
		return stale, err
	}

	p.mutSnapshots.Lock()
	p.snapshots[player] = snapshot
	p.mutSnapshots.Unlock()

	p.publish(data.Update{Snapshot: snapshot.Clone(), Event: event, Reason: reason})

	return snapshot.Clone(), nil
}

func (p *RoundPoller) markStale(player common.Address, err error) *data.Snapshot {
	p.mutSnapshots.Lock()
	defer p.mutSnapshots.Unlock()

	previous, ok := p.snapshots[player]
	if !ok {
		return nil
	}

	stale := previous.Clone()
	stale.Stale = true
	stale.LastError = err.Error()
	p.snapshots[player] = stale

	return stale.Clone()
}

// Snapshot returns the last snapshot cached for the player, nil if none was fetched yet
func (p *RoundPoller) Snapshot(player common.Address) *data.Snapshot {
	p.mutSnapshots.RLock()
	defer p.mutSnapshots.RUnlock()

	return p.snapshots[player].Clone()
}

// Current returns the last snapshot of the configured player
func (p *RoundPoller) Current() *data.Snapshot {
	return p.Snapshot(p.player)
}

// Subscribe registers a listener for updates. Every event update is delivered, slow listeners
// skip intermediate snapshot updates and receive the latest one.
// The returned function unsubscribes and closes the channel.
func (p *RoundPoller) Subscribe() (<-chan data.Update, func()) {
	p.mutSubscribers.Lock()
	defer p.mutSubscribers.Unlock()

	id := p.nextID
	p.nextID++
	sub := newSubscriber()
	p.subscribers[id] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			p.mutSubscribers.Lock()
			delete(p.subscribers, id)
			p.mutSubscribers.Unlock()

			sub.close()
		})
	}

	return sub.out, unsubscribe
}

func (p *RoundPoller) publish(update data.Update) {
	p.mutSubscribers.Lock()
	defer p.mutSubscribers.Unlock()

	for _, sub := range p.subscribers {
		sub.push(update)
	}
}

// Start fetches a first snapshot and keeps refreshing it until Stop is called or the context is done
func (p *RoundPoller) Start(ctx context.Context) error {
	p.mutRun.Lock()
	defer p.mutRun.Unlock()

	if p.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, p.cancel = context.WithCancel(ctx)
	events := make(chan *data.Event, eventsBuffer)

	p.wg.Add(3)
	go p.refreshLoop(ctx)
	go p.watchEvents(ctx, events)
	go p.processEvents(ctx, events)

	return nil
}

// Stop cancels the refresh and event goroutines and waits for them to return
func (p *RoundPoller) Stop() {
	p.mutRun.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mutRun.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	p.wg.Wait()
}

func (p *RoundPoller) refreshLoop(ctx context.Context) {
	defer p.wg.Done()

	_, _ = p.refresh(ctx, p.player, ReasonStart, nil)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		reason := ReasonInterval
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case reason = <-p.trigger:
		}

		_, _ = p.refresh(ctx, p.player, reason, nil)
	}
}

func (p *RoundPoller) watchEvents(ctx context.Context, events chan<- *data.Event) {
	defer p.wg.Done()

	for {
		err := p.reader.WatchEvents(ctx, p.eventsInterval, events)
		if ctx.Err() != nil {
			return
		}

		log.Warn("event watcher stopped, restarting", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.eventsInterval):
		}
	}
}

func (p *RoundPoller) processEvents(ctx context.Context, events <-chan *data.Event) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			p.HandleEvent(event)
		}
	}
}

// HandleEvent publishes the event and schedules a refresh when it changes the round state
func (p *RoundPoller) HandleEvent(event *data.Event) {
	if event == nil {
		return
	}

	log.Debug("contract event", "name", event.Name, "block", event.BlockNumber, "tx", event.TxHash.Hex())
	p.publish(data.Update{Snapshot: p.Current(), Event: event, Reason: ReasonEvent})

	if _, ok := invalidatingEvents[event.Name]; !ok {
		return
	}

	select {
	case p.trigger <- ReasonEvent:
	default:
	}
}

// IsInterfaceNil returns true if there is no value under the interface
func (p *RoundPoller) IsInterfaceNil() bool {
	return p == nil
}
