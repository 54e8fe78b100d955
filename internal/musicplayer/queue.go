package musicplayer

import (
	"slices"
	"sync"
	"time"
)

type Track struct {
	URL         string
	Title       string
	RequestedBy string
}

// Queue is the playback state of one guild. Its fields are guarded by mu;
// the Controller holds mu for every command step and player event.
type Queue struct {
	mu sync.Mutex

	GuildID string

	songs          []Track
	playing        bool
	conn           Connection
	player         *MusicPlayer
	current        Resource
	voiceChannelID string
	textChannelID  string
	// bumped whenever a pending track load is superseded
	loadSeq uint64

	disconnectTimer *time.Timer
}

func newQueue(guildID string) *Queue {
	return &Queue{
		GuildID: guildID,
		songs:   []Track{},
		player:  NewMusicPlayer(),
	}
}

func (q *Queue) Songs() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.songs)
}

func (q *Queue) Playing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

func (q *Queue) Connected() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.conn != nil
}

func (q *Queue) VoiceChannelID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.voiceChannelID
}

func (q *Queue) TextChannelID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.textChannelID
}

// Store maps guild ids to their queues. Queues live for the whole process.
type Store struct {
	mx     *sync.Mutex
	queues map[string]*Queue
}

func NewStore() *Store {
	return &Store{
		mx:     &sync.Mutex{},
		queues: map[string]*Queue{},
	}
}

// GetOrCreate returns the guild's queue, allocating an empty one first if needed.
func (s *Store) GetOrCreate(guildID string) *Queue {
	s.mx.Lock()
	defer s.mx.Unlock()

	q, found := s.queues[guildID]
	if !found {
		q = newQueue(guildID)
		s.queues[guildID] = q
	}
	return q
}

func (s *Store) Get(guildID string) (*Queue, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()

	q, found := s.queues[guildID]
	return q, found
}

func (s *Store) All() []*Queue {
	s.mx.Lock()
	defer s.mx.Unlock()

	queues := make([]*Queue, 0, len(s.queues))
	for _, q := range s.queues {
		queues = append(queues, q)
	}
	return queues
}

func (s *Store) Len() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.queues)
}
