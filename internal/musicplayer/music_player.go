package musicplayer

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const subscriberPollInterval = 100 * time.Millisecond

type EventType uint8

const (
	EventIdle EventType = iota + 1
	EventError
)

func (et EventType) String() string {
	switch et {
	case EventIdle:
		return "idle"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventType(%d)", et)
	}
}

// PlayerEvent reports that Resource left the player.
type PlayerEvent struct {
	Type     EventType
	Resource Resource
	Err      error
}

// MusicPlayer streams one resource at a time to its subscribed connection.
// With no subscriber, playback waits until one is set.
type MusicPlayer struct {
	mx      *sync.Mutex
	conn    Connection
	cur     *playback
	handler func(PlayerEvent)
}

type playback struct {
	res      Resource
	stop     chan struct{}
	stopOnce sync.Once
}

func (pb *playback) halt() {
	pb.stopOnce.Do(func() {
		close(pb.stop)
		pb.res.Close()
	})
}

func NewMusicPlayer() *MusicPlayer {
	return &MusicPlayer{mx: &sync.Mutex{}}
}

// OnEvent installs fn as the event handler. Only the first call has an
// effect; it reports whether fn was installed.
func (mp *MusicPlayer) OnEvent(fn func(PlayerEvent)) bool {
	mp.mx.Lock()
	defer mp.mx.Unlock()
	if mp.handler != nil {
		return false
	}
	mp.handler = fn
	return true
}

// Subscribe makes conn the destination of played audio. nil unsubscribes.
func (mp *MusicPlayer) Subscribe(conn Connection) {
	mp.mx.Lock()
	mp.conn = conn
	mp.mx.Unlock()
}

// Play replaces whatever is playing with res. The replaced resource is
// closed without emitting an event.
func (mp *MusicPlayer) Play(res Resource) {
	pb := &playback{res: res, stop: make(chan struct{})}

	mp.mx.Lock()
	old := mp.cur
	mp.cur = pb
	mp.mx.Unlock()

	if old != nil {
		old.halt()
	}
	go mp.run(pb)
}

// Stop ends the current resource and emits an idle event for it. It reports
// false when nothing was playing.
func (mp *MusicPlayer) Stop() bool {
	mp.mx.Lock()
	pb := mp.cur
	mp.cur = nil
	handler := mp.handler
	mp.mx.Unlock()

	if pb == nil {
		return false
	}
	pb.halt()
	if handler != nil {
		go handler(PlayerEvent{Type: EventIdle, Resource: pb.res})
	}
	return true
}

func (mp *MusicPlayer) Playing() bool {
	mp.mx.Lock()
	defer mp.mx.Unlock()
	return mp.cur != nil
}

func (mp *MusicPlayer) subscriber(pb *playback) (Connection, bool) {
	for {
		mp.mx.Lock()
		conn := mp.conn
		mp.mx.Unlock()
		if conn != nil {
			return conn, true
		}

		select {
		case <-pb.stop:
			return nil, false
		case <-time.After(subscriberPollInterval):
		}
	}
}

func (mp *MusicPlayer) run(pb *playback) {
	stopped, err := mp.stream(pb)
	pb.res.Close()
	if stopped {
		return
	}
	mp.finish(pb, err)
}

// stream sends frames until the resource ends, fails or pb is stopped.
func (mp *MusicPlayer) stream(pb *playback) (stopped bool, err error) {
	var speaking Connection
	defer func() {
		// a stopped playback is usually followed by the next one right away
		if speaking != nil && !stopped {
			speaking.Speaking(false)
		}
	}()

	for {
		frame, rErr := pb.res.ReadFrame()
		if rErr != nil {
			select {
			case <-pb.stop:
				return true, nil
			default:
			}
			if errors.Is(rErr, io.EOF) {
				return false, nil
			}
			return false, rErr
		}

		conn, ok := mp.subscriber(pb)
		if !ok {
			return true, nil
		}
		if conn != speaking {
			if err = conn.Speaking(true); err != nil {
				return false, fmt.Errorf("error when setting speaking state: %w", err)
			}
			speaking = conn
		}

		select {
		case <-pb.stop:
			return true, nil
		case conn.OpusSend() <- frame:
		}
	}
}

// finish emits the terminal event of pb unless pb was replaced or stopped.
func (mp *MusicPlayer) finish(pb *playback, err error) {
	mp.mx.Lock()
	current := mp.cur == pb
	if current {
		mp.cur = nil
	}
	handler := mp.handler
	mp.mx.Unlock()

	if !current || handler == nil {
		return
	}

	ev := PlayerEvent{Type: EventIdle, Resource: pb.res}
	if err != nil {
		ev.Type = EventError
		ev.Err = err
	}
	handler(ev)
}
