package realtime

import (
	"sort"

	"github.com/shinyyama/loops-backend/internal/model"
)

// ThreadView is a viewer's copy of one thread. It reconciles rows arriving
// from the backlog, live delivery and replays by id, so a message shown once
// is never shown twice.
type ThreadView struct {
	messages []model.Message
	ids      map[uint64]struct{}
}

func NewThreadView(backlog []model.Message) *ThreadView {
	v := &ThreadView{ids: make(map[uint64]struct{}, len(backlog))}
	for _, m := range backlog {
		v.Insert(m)
	}
	return v
}

// Insert adds msg unless a message with the same id is already present. It
// reports whether the view changed.
func (v *ThreadView) Insert(msg model.Message) bool {
	if _, ok := v.ids[msg.ID]; ok {
		return false
	}
	v.ids[msg.ID] = struct{}{}

	i := sort.Search(len(v.messages), func(i int) bool {
		return before(msg, v.messages[i])
	})
	v.messages = append(v.messages, model.Message{})
	copy(v.messages[i+1:], v.messages[i:])
	v.messages[i] = msg
	return true
}

// InsertAll inserts msgs and returns the ones that were new, in thread order.
func (v *ThreadView) InsertAll(msgs []model.Message) []model.Message {
	var fresh []model.Message
	for _, m := range msgs {
		if v.Insert(m) {
			fresh = append(fresh, m)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return before(fresh[i], fresh[j]) })
	return fresh
}

// Drain returns first followed by every message already queued on c, without
// waiting for more. open is false once c has been closed.
func Drain(first model.Message, c <-chan model.Message) (batch []model.Message, open bool) {
	batch = []model.Message{first}
	for {
		select {
		case m, ok := <-c:
			if !ok {
				return batch, false
			}
			batch = append(batch, m)
		default:
			return batch, true
		}
	}
}

func (v *ThreadView) Contains(id uint64) bool {
	_, ok := v.ids[id]
	return ok
}

// Messages returns the thread ordered by (created_at, id).
func (v *ThreadView) Messages() []model.Message {
	out := make([]model.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

func (v *ThreadView) Len() int {
	return len(v.messages)
}

func before(a, b model.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
