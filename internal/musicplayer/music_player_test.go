package musicplayer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(mp *MusicPlayer) chan PlayerEvent {
	events := make(chan PlayerEvent, 16)
	mp.OnEvent(func(ev PlayerEvent) { events <- ev })
	return events
}

func waitEvent(t *testing.T, events chan PlayerEvent) PlayerEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no player event")
		return PlayerEvent{}
	}
}

func assertNoEvent(t *testing.T, events chan PlayerEvent, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected %s event", ev.Type)
	case <-time.After(wait):
	}
}

func TestMusicPlayer_PlaysFramesThenIdle(t *testing.T) {
	mp := NewMusicPlayer()
	events := collectEvents(mp)
	conn := newFakeConn("voice")
	mp.Subscribe(conn)

	res := newFakeResource([]byte("a"), []byte("b"), []byte("c"))
	mp.Play(res)

	ev := waitEvent(t, events)
	assert.Equal(t, EventIdle, ev.Type)
	assert.Same(t, res, ev.Resource)
	assert.NoError(t, ev.Err)

	require.Len(t, conn.send, 3)
	assert.Equal(t, []byte("a"), <-conn.send)
	assert.Equal(t, []byte("b"), <-conn.send)
	assert.Equal(t, []byte("c"), <-conn.send)
	assert.Equal(t, []bool{true, false}, conn.SpeakingStates())
	assert.True(t, res.isClosed())
	assert.False(t, mp.Playing())
}

func TestMusicPlayer_ReadFailureEmitsError(t *testing.T) {
	mp := NewMusicPlayer()
	events := collectEvents(mp)
	mp.Subscribe(newFakeConn("voice"))

	res := newFakeResource([]byte("a"))
	res.err = errors.New("decoder died")
	mp.Play(res)

	ev := waitEvent(t, events)
	assert.Equal(t, EventError, ev.Type)
	assert.Same(t, res, ev.Resource)
	assert.EqualError(t, ev.Err, "decoder died")
}

func TestMusicPlayer_StopEmitsIdle(t *testing.T) {
	mp := NewMusicPlayer()
	events := collectEvents(mp)
	mp.Subscribe(newFakeConn("voice"))

	assert.False(t, mp.Stop())

	res := newHeldResource()
	mp.Play(res)
	assert.True(t, mp.Playing())
	assert.True(t, mp.Stop())

	ev := waitEvent(t, events)
	assert.Equal(t, EventIdle, ev.Type)
	assert.Same(t, res, ev.Resource)
	assert.True(t, res.isClosed())
	assert.False(t, mp.Playing())

	assert.False(t, mp.Stop())
	assertNoEvent(t, events, 50*time.Millisecond)
}

func TestMusicPlayer_PlayReplacesSilently(t *testing.T) {
	mp := NewMusicPlayer()
	events := collectEvents(mp)
	mp.Subscribe(newFakeConn("voice"))

	first := newHeldResource()
	mp.Play(first)
	second := newHeldResource()
	mp.Play(second)

	assert.True(t, first.isClosed())
	assertNoEvent(t, events, 50*time.Millisecond)

	second.release()
	ev := waitEvent(t, events)
	assert.Same(t, second, ev.Resource)
}

func TestMusicPlayer_WaitsForSubscriber(t *testing.T) {
	mp := NewMusicPlayer()
	events := collectEvents(mp)

	mp.Play(newFakeResource([]byte("a")))
	time.Sleep(2 * subscriberPollInterval)
	assertNoEvent(t, events, 0)

	conn := newFakeConn("voice")
	mp.Subscribe(conn)

	ev := waitEvent(t, events)
	assert.Equal(t, EventIdle, ev.Type)
	assert.Equal(t, []byte("a"), <-conn.send)
}

func TestMusicPlayer_OnEventOnce(t *testing.T) {
	mp := NewMusicPlayer()
	assert.True(t, mp.OnEvent(func(PlayerEvent) {}))
	assert.False(t, mp.OnEvent(func(PlayerEvent) {}))
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "idle", EventIdle.String())
	assert.Equal(t, "error", EventError.String())
	assert.Equal(t, "EventType(9)", EventType(9).String())
}
