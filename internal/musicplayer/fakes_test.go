package musicplayer

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/ARF-DEV/ytqueue_bot/utils/ytutils"
)

type fakeConn struct {
	channelID string
	send      chan []byte

	mx          sync.Mutex
	speaking    []bool
	disconnects int
}

func newFakeConn(channelID string) *fakeConn {
	return &fakeConn{channelID: channelID, send: make(chan []byte, 1024)}
}

func (fc *fakeConn) ChannelID() string { return fc.channelID }

func (fc *fakeConn) Speaking(b bool) error {
	fc.mx.Lock()
	defer fc.mx.Unlock()
	fc.speaking = append(fc.speaking, b)
	return nil
}

func (fc *fakeConn) OpusSend() chan<- []byte { return fc.send }

func (fc *fakeConn) Disconnect() error {
	fc.mx.Lock()
	defer fc.mx.Unlock()
	fc.disconnects++
	return nil
}

func (fc *fakeConn) Disconnects() int {
	fc.mx.Lock()
	defer fc.mx.Unlock()
	return fc.disconnects
}

func (fc *fakeConn) SpeakingStates() []bool {
	fc.mx.Lock()
	defer fc.mx.Unlock()
	return slices.Clone(fc.speaking)
}

// fakeResource serves its frames and then ends. A held resource blocks after
// its frames until released or closed.
type fakeResource struct {
	mx     sync.Mutex
	frames [][]byte
	err    error

	hold      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeResource(frames ...[]byte) *fakeResource {
	return &fakeResource{frames: frames, closed: make(chan struct{})}
}

func newHeldResource() *fakeResource {
	r := newFakeResource()
	r.hold = make(chan struct{})
	return r
}

func (r *fakeResource) release() {
	close(r.hold)
}

func (r *fakeResource) ReadFrame() ([]byte, error) {
	r.mx.Lock()
	if len(r.frames) > 0 {
		f := r.frames[0]
		r.frames = r.frames[1:]
		r.mx.Unlock()
		return f, nil
	}
	r.mx.Unlock()

	if r.hold != nil {
		select {
		case <-r.hold:
		case <-r.closed:
			return nil, io.ErrClosedPipe
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return nil, io.EOF
}

func (r *fakeResource) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeResource) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

type fakeJoiner struct {
	mx    sync.Mutex
	joins []string
	conns []*fakeConn
	err   error
	block bool
}

func (fj *fakeJoiner) Join(ctx context.Context, guildID, channelID string) (Connection, error) {
	fj.mx.Lock()
	fj.joins = append(fj.joins, channelID)
	block, err := fj.block, fj.err
	fj.mx.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	conn := newFakeConn(channelID)
	fj.mx.Lock()
	fj.conns = append(fj.conns, conn)
	fj.mx.Unlock()
	return conn, nil
}

func (fj *fakeJoiner) Joins() []string {
	fj.mx.Lock()
	defer fj.mx.Unlock()
	return slices.Clone(fj.joins)
}

func (fj *fakeJoiner) last() *fakeConn {
	fj.mx.Lock()
	defer fj.mx.Unlock()
	if len(fj.conns) == 0 {
		return nil
	}
	return fj.conns[len(fj.conns)-1]
}

type fakeExtractor struct {
	mx          sync.Mutex
	titles      map[string]string
	infoErr     error
	streamErr   map[string]error
	hang        map[string]bool
	infoCalls   int
	streamCalls []string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{titles: map[string]string{}, streamErr: map[string]error{}, hang: map[string]bool{}}
}

func (fe *fakeExtractor) GetBasicInfo(_ context.Context, rawURL string) (ytutils.VideoMeta, error) {
	fe.mx.Lock()
	defer fe.mx.Unlock()
	fe.infoCalls++
	if fe.infoErr != nil {
		return ytutils.VideoMeta{}, fe.infoErr
	}
	id, _ := ytutils.VideoID(rawURL)
	return ytutils.VideoMeta{ID: id, Title: fe.titles[rawURL]}, nil
}

// AudioOnly blocks until ctx is done for urls marked in hang.
func (fe *fakeExtractor) AudioOnly(ctx context.Context, rawURL string) (*ytutils.AudioStream, error) {
	fe.mx.Lock()
	fe.streamCalls = append(fe.streamCalls, rawURL)
	hang, err := fe.hang[rawURL], fe.streamErr[rawURL]
	fe.mx.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &ytutils.AudioStream{
		ReadCloser: io.NopCloser(strings.NewReader("")),
		URL:        rawURL,
		Container:  "webm",
	}, nil
}

func (fe *fakeExtractor) InfoCalls() int {
	fe.mx.Lock()
	defer fe.mx.Unlock()
	return fe.infoCalls
}

func (fe *fakeExtractor) StreamCalls() []string {
	fe.mx.Lock()
	defer fe.mx.Unlock()
	return slices.Clone(fe.streamCalls)
}

// resourceFactory hands out held resources keyed by the url they were opened for.
type resourceFactory struct {
	mx      sync.Mutex
	made    map[string]*fakeResource
	started []string
	failing map[string]error
}

func newResourceFactory() *resourceFactory {
	return &resourceFactory{made: map[string]*fakeResource{}, failing: map[string]error{}}
}

func (rf *resourceFactory) New(src *ytutils.AudioStream) (Resource, error) {
	rf.mx.Lock()
	defer rf.mx.Unlock()
	if err := rf.failing[src.URL]; err != nil {
		src.Close()
		return nil, err
	}
	r := newHeldResource()
	rf.made[src.URL] = r
	rf.started = append(rf.started, src.URL)
	return r, nil
}

func (rf *resourceFactory) get(url string) *fakeResource {
	rf.mx.Lock()
	defer rf.mx.Unlock()
	return rf.made[url]
}

func (rf *resourceFactory) Started() []string {
	rf.mx.Lock()
	defer rf.mx.Unlock()
	return slices.Clone(rf.started)
}
