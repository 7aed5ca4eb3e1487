package stream

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/user"
)

// Channel names follow a pattern:
//
//	user:<userID>       — events for a specific jobseeker
//	recruiter:<userID>  — events for a specific recruiter
//	broadcast           — everything addressed platform-wide
//
// Channel names are derived from identity, never chosen by clients.

// ChannelBroadcast is the platform-wide channel. Admins join it at
// registration, everyone else may opt in; `job:new` events from the
// importer land here.
const ChannelBroadcast = "broadcast"

// UserChannel returns the private channel for a jobseeker.
func UserChannel(userID id.UserID) string { return "user:" + userID.String() }

// RecruiterChannel returns the private channel for a recruiter.
func RecruiterChannel(userID id.UserID) string { return "recruiter:" + userID.String() }

// ChannelFor returns the canonical private channel for an identity.
// Admins have no private mailbox of their own; they observe via
// broadcast.
func ChannelFor(subject id.UserID, role user.Role) string {
	if role == user.RoleRecruiter {
		return RecruiterChannel(subject)
	}
	return UserChannel(subject)
}

// ParseChannel extracts the scope and subject ID from a channel name.
// For example, "user:usr_abc" returns ("user", "usr_abc").
// Returns ("", "") for the broadcast channel.
func ParseChannel(channel string) (scope, subject string) {
	idx := strings.IndexByte(channel, ':')
	if idx < 0 {
		return "", ""
	}
	return channel[:idx], channel[idx+1:]
}

// ValidateChannel checks whether a channel name is well-formed.
func ValidateChannel(channel string) error {
	if channel == ChannelBroadcast {
		return nil
	}

	scope, subject := ParseChannel(channel)
	if scope == "" || subject == "" {
		return fmt.Errorf("stream: invalid channel %q", channel)
	}

	switch scope {
	case "user", "recruiter":
		if _, err := id.ParseUserID(subject); err != nil {
			return fmt.Errorf("stream: invalid channel subject %q: %w", subject, err)
		}
		return nil
	default:
		return fmt.Errorf("stream: unknown channel scope %q", scope)
	}
}

// ChannelRegistry manages subscriber sets per channel.
// It is safe for concurrent use and is the only long-lived shared
// mutable structure in the broker; all mutation goes through
// Subscribe/Unsubscribe/UnsubscribeAll.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]map[string]*Subscriber // channel → subscriberID → subscriber
}

// NewChannelRegistry creates an empty channel registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		channels: make(map[string]map[string]*Subscriber),
	}
}

// Subscribe adds a subscriber to a channel. Creates the channel if it
// doesn't exist.
func (cr *ChannelRegistry) Subscribe(channel string, sub *Subscriber) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	subs, ok := cr.channels[channel]
	if !ok {
		subs = make(map[string]*Subscriber)
		cr.channels[channel] = subs
	}
	subs[sub.ID()] = sub
	sub.addChannel(channel)
}

// Unsubscribe removes a subscriber from a channel. Cleans up empty
// channels.
func (cr *ChannelRegistry) Unsubscribe(channel, subscriberID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	subs, ok := cr.channels[channel]
	if !ok {
		return
	}
	if sub, exists := subs[subscriberID]; exists {
		sub.removeChannel(channel)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(cr.channels, channel)
	}
}

// UnsubscribeAll removes a subscriber from all channels.
func (cr *ChannelRegistry) UnsubscribeAll(subscriberID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	for channel, subs := range cr.channels {
		if sub, ok := subs[subscriberID]; ok {
			sub.removeChannel(channel)
			delete(subs, subscriberID)
		}
		if len(subs) == 0 {
			delete(cr.channels, channel)
		}
	}
}

// Publish sends an event to all subscribers on the given channel.
// Membership is read at call time; the send loop runs outside the lock
// so a slow subscriber never blocks membership changes. Returns
// delivered and dropped counts. Zero members is a no-op.
func (cr *ChannelRegistry) Publish(channel string, evt *Event) (delivered, dropped int) {
	cr.mu.RLock()
	subs := cr.channels[channel]
	targets := make([]*Subscriber, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	cr.mu.RUnlock()

	for _, s := range targets {
		if s.send(evt) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// Members returns the subscriber IDs currently on a channel.
func (cr *ChannelRegistry) Members(channel string) []string {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	subs := cr.channels[channel]
	out := make([]string, 0, len(subs))
	for subID := range subs {
		out = append(out, subID)
	}
	return out
}

// ChannelCount returns the number of active channels.
func (cr *ChannelRegistry) ChannelCount() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.channels)
}

// SubscriberCount returns the number of subscribers on a channel.
func (cr *ChannelRegistry) SubscriberCount(channel string) int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.channels[channel])
}
