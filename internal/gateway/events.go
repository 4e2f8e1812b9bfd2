package gateway

import "github.com/goccy/go-json"

// EventKind is the discriminated-union tag the demultiplexer assigns to each
// dispatch event, replacing the ad-hoc string-keyed event objects of the
// original implementation per SPEC_FULL.md §9 "Ad-hoc event objects keyed by
// string type".
type EventKind int

const (
	EventMessage EventKind = iota
	EventTyping
	EventSummary
	EventAck
	EventThread
	EventCall
	EventVoice
	EventPresence
	EventUser
	EventMember
	EventProtoSettings
	EventGuild
	EventAutocomplete
)

// eventKindOrder is the controller's fixed drain order, §4.3 step 1.
var eventKindOrder = []EventKind{
	EventMessage, EventTyping, EventSummary, EventAck, EventThread,
	EventCall, EventVoice, EventPresence, EventUser, EventMember,
	EventProtoSettings, EventAutocomplete,
}

// Event is the engine-internal shape every dispatch payload is converted to
// before being enqueued.
type Event struct {
	Kind EventKind
	Type string
	Data json.RawMessage
}

// dispatchKind maps a dispatch event type name to its queue kind. Unknown
// types fall back to EventGuild so GUILD_CREATE/UPDATE/DELETE, CHANNEL_*, and
// ROLE_* all land in one catch-all queue the state store drains generically.
func dispatchKind(eventType string) EventKind {
	switch eventType {
	case "MESSAGE_CREATE", "MESSAGE_UPDATE", "MESSAGE_DELETE",
		"MESSAGE_REACTION_ADD", "MESSAGE_REACTION_REMOVE",
		"MESSAGE_REACTION_ADD_MANY",
		"MESSAGE_POLL_VOTE_ADD", "MESSAGE_POLL_VOTE_REMOVE":
		return EventMessage
	case "TYPING_START":
		return EventTyping
	case "READY_SUPPLEMENTAL", "GUILD_MEMBER_LIST_UPDATE":
		return EventSummary
	case "MESSAGE_ACK":
		return EventAck
	case "THREAD_CREATE", "THREAD_UPDATE", "THREAD_DELETE", "THREAD_LIST_SYNC":
		return EventThread
	case "CALL_CREATE", "CALL_UPDATE", "CALL_DELETE":
		return EventCall
	case "VOICE_STATE_UPDATE", "VOICE_SERVER_UPDATE":
		return EventVoice
	case "PRESENCE_UPDATE":
		return EventPresence
	case "USER_UPDATE", "USER_SETTINGS_PROTO_UPDATE":
		return EventUser
	case "GUILD_MEMBER_UPDATE", "GUILD_MEMBERS_CHUNK":
		return EventMember
	case "USER_GUILD_SETTINGS_UPDATE":
		return EventProtoSettings
	default:
		return EventGuild
	}
}

// queueCapacity bounds every per-kind channel; producers never block on a
// full queue for more than one tick (§4.1 Event demux) -- see Enqueue.
const queueCapacity = 256

// Queues holds one bounded channel per EventKind plus a catch-all guild
// queue, fed by the demultiplexer and drained by the controller tick in
// eventKindOrder.
type Queues struct {
	byKind   map[EventKind]chan Event
	guild    chan Event
	overflow func()
}

// NewQueues builds the demultiplexer's output queues. overflow is invoked
// (non-blocking) whenever a queue is full; the caller is expected to mark the
// session resumable to force rehydration, per §4.1 Failure semantics.
func NewQueues(overflow func()) *Queues {
	q := &Queues{
		byKind:   make(map[EventKind]chan Event, len(eventKindOrder)),
		guild:    make(chan Event, queueCapacity),
		overflow: overflow,
	}
	for _, k := range eventKindOrder {
		q.byKind[k] = make(chan Event, queueCapacity)
	}
	return q
}

// Enqueue routes a decoded dispatch event to its queue. It never blocks.
func (q *Queues) Enqueue(eventType string, data json.RawMessage) {
	kind := dispatchKind(eventType)
	evt := Event{Kind: kind, Type: eventType, Data: data}

	ch := q.guild
	if kind != EventGuild {
		ch = q.byKind[kind]
	}

	select {
	case ch <- evt:
	default:
		if q.overflow != nil {
			q.overflow()
		}
	}
}

// Drain pulls every currently queued event for kind without blocking,
// calling handle for each, preserving insertion (gateway observation) order.
func (q *Queues) Drain(kind EventKind, handle func(Event)) {
	ch := q.byKind[kind]
	for {
		select {
		case evt := <-ch:
			handle(evt)
		default:
			return
		}
	}
}

// DrainGuild drains the catch-all GUILD/ROLE/CHANNEL queue.
func (q *Queues) DrainGuild(handle func(Event)) {
	for {
		select {
		case evt := <-q.guild:
			handle(evt)
		default:
			return
		}
	}
}

// DrainAll drains every queue in the controller's fixed order (§4.3 step 1),
// running the guild catch-all queue last.
func (q *Queues) DrainAll(handle func(Event)) {
	for _, k := range eventKindOrder {
		q.Drain(k, handle)
	}
	q.DrainGuild(handle)
}
