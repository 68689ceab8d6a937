package view

import (
	"sync"

	"github.com/google/uuid"
)

// Observer раздает свежесобранные комментарии подписчикам тем.
type Observer struct {
	mu sync.RWMutex
	//          map[topicID] map[subscriberID] channel
	subs map[int]map[string]chan *PreparedComment
}

// NewObserver создает наблюдателя без подписчиков.
func NewObserver() *Observer {
	return &Observer{
		subs: make(map[int]map[string]chan *PreparedComment),
	}
}

// Subscribe подписывает на новые комментарии темы и возвращает id
// подписки вместе с каналом.
func (o *Observer) Subscribe(topicID int) (string, <-chan *PreparedComment) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan *PreparedComment, 16)
	if o.subs[topicID] == nil {
		o.subs[topicID] = make(map[string]chan *PreparedComment)
	}
	o.subs[topicID][id] = ch
	return id, ch
}

// Unsubscribe снимает подписку и закрывает ее канал.
func (o *Observer) Unsubscribe(topicID int, id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ch, ok := o.subs[topicID][id]; ok {
		delete(o.subs[topicID], id)
		close(ch)
	}
	if len(o.subs[topicID]) == 0 {
		delete(o.subs, topicID)
	}
}

// Notify рассылает комментарий подписчикам темы, не блокируясь
// на медленных читателях.
func (o *Observer) Notify(topicID int, pc *PreparedComment) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[topicID] {
		select {
		case ch <- pc:
		default:
			// Клиент не успевает читать, пропускаем
		}
	}
}
