package poller

import (
	"sync"

	"github.com/DrDelphi/LuckyOneBot/data"
)

// subscriber delivers the updates of one listener. Event updates are queued and always
// delivered in order, snapshot updates only keep the latest one.
type subscriber struct {
	out    chan data.Update
	notify chan struct{}
	done   chan struct{}
	exited chan struct{}

	mut    sync.Mutex
	events []data.Update
	latest *data.Update
}

func newSubscriber() *subscriber {
	s := &subscriber{
		out:    make(chan data.Update),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.forward()

	return s
}

func (s *subscriber) push(update data.Update) {
	s.mut.Lock()
	if update.Event != nil {
		if len(s.events) == maxQueuedEvents {
			log.Warn("subscriber event queue full, dropping oldest event", "name", s.events[0].Event.Name)
			s.events = s.events[1:]
		}
		s.events = append(s.events, update)
	} else {
		s.latest = &update
	}
	s.mut.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) next() (data.Update, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if len(s.events) > 0 {
		update := s.events[0]
		s.events = s.events[1:]
		return update, true
	}
	if s.latest != nil {
		update := *s.latest
		s.latest = nil
		return update, true
	}

	return data.Update{}, false
}

// requeue puts back a snapshot update that was not delivered unless a newer one arrived meanwhile
func (s *subscriber) requeue(update data.Update) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.latest == nil {
		s.latest = &update
	}
}

func (s *subscriber) forward() {
	defer close(s.exited)
	defer close(s.out)

	for {
		update, ok := s.next()
		if !ok {
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}

		if update.Event != nil {
			select {
			case s.out <- update:
			case <-s.done:
				return
			}
			continue
		}

		select {
		case s.out <- update:
		case <-s.notify:
			s.requeue(update)
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) close() {
	close(s.done)
	<-s.exited
}
