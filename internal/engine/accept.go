package engine

import (
	"context"
	"slices"

	"github.com/dpshade/permahub/internal/event"
)

// Decision is what the engine did with an inbound event.
type Decision string

const (
	DecisionInserted   Decision = "inserted"
	DecisionToggledOff Decision = "toggled_off"
	DecisionUnfollowed Decision = "unfollowed"
	DecisionDropped    Decision = "dropped"
)

// Branch names the rule that matched.
type Branch string

const (
	BranchSelfFollow     Branch = "self_follow"
	BranchSelfReaction   Branch = "self_reaction"
	BranchSelfBroadcast  Branch = "self_broadcast"
	BranchRemoteFollow   Branch = "remote_follow"
	BranchRemoteUnfollow Branch = "remote_unfollow"
	BranchRemoteReaction Branch = "remote_reaction"
	BranchRemoteReply    Branch = "remote_reply"
	BranchFollowedAuthor Branch = "followed_author"
	BranchDrop           Branch = "drop"
)

// Outcome is the result of accepting one event.
type Outcome struct {
	Decision Decision    `json:"decision"`
	Branch   Branch      `json:"branch"`
	Event    event.Event `json:"event"`
	// Recipients is the fan-out list, empty when nothing is sent.
	Recipients []string `json:"recipients"`
	// Removed counts rows deleted by an unfollow.
	Removed int64 `json:"removed,omitempty"`
}

// accept runs the decision procedure for one event.
// CRITICAL: Called only from the Run goroutine.
func (e *Engine) accept(ctx context.Context, in Inbound) (Outcome, error) {
	evt := in.Event.Clone()
	if evt.From == "" || evt.Kind == "" {
		return Outcome{}, &RuntimeError{Code: ErrCodeInvalidEvent, Message: "event needs from and kind", EventID: evt.ID}
	}

	if e.isSelf(evt.From) {
		return e.acceptSelf(ctx, evt, in.MessageID)
	}
	return e.acceptRemote(ctx, evt)
}

func (e *Engine) isSelf(from string) bool {
	return from == e.hubID || (e.owner != "" && from == e.owner)
}

func (e *Engine) acceptSelf(ctx context.Context, evt event.Event, messageID string) (Outcome, error) {
	original := evt.ID
	if original == "" {
		original = messageID
	}
	evt.From = e.hubID
	evt.OriginalID = original

	switch {
	case evt.Kind == event.KindFollow && evt.P != "":
		previous, err := e.followList(ctx)
		if err != nil {
			return Outcome{}, err
		}
		stored, err := e.insert(ctx, evt)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Decision:   DecisionInserted,
			Branch:     BranchSelfFollow,
			Event:      stored,
			Recipients: union(stored.Participants(), previous),
		}, nil

	case evt.Kind == event.KindReaction && evt.HasToggleFields():
		return e.toggle(ctx, evt, BranchSelfReaction)

	default:
		followers, err := e.store.FollowerAuthors(ctx, e.hubID)
		if err != nil {
			return Outcome{}, storeError("read followers", evt.ID, err)
		}
		stored, err := e.insert(ctx, evt)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Decision:   DecisionInserted,
			Branch:     BranchSelfBroadcast,
			Event:      stored,
			Recipients: followers,
		}, nil
	}
}

func (e *Engine) acceptRemote(ctx context.Context, evt event.Event) (Outcome, error) {
	switch {
	case evt.Kind == event.KindFollow:
		if !evt.HasParticipant(e.hubID) {
			n, err := e.store.Unfollow(ctx, evt.From)
			if err != nil {
				return Outcome{}, storeError("unfollow", evt.ID, err)
			}
			return Outcome{Decision: DecisionUnfollowed, Branch: BranchRemoteUnfollow, Event: evt, Recipients: []string{}, Removed: n}, nil
		}
		if err := e.store.ClearUnfollow(ctx, evt.From); err != nil {
			return Outcome{}, storeError("clear unfollow", evt.ID, err)
		}
		stored, err := e.insert(ctx, evt)
		if err != nil {
			return Outcome{}, err
		}
		return inserted(BranchRemoteFollow, stored), nil

	case evt.Kind == event.KindReaction && evt.HasToggleFields():
		return e.toggle(ctx, evt, BranchRemoteReaction)

	case evt.IsReply() && evt.HasToggleFields():
		return e.toggle(ctx, evt, BranchRemoteReply)
	}

	followed, err := e.followsAuthor(ctx, evt.From)
	if err != nil {
		return Outcome{}, err
	}
	if followed {
		stored, err := e.insert(ctx, evt)
		if err != nil {
			return Outcome{}, err
		}
		return inserted(BranchFollowedAuthor, stored), nil
	}

	return Outcome{Decision: DecisionDropped, Branch: BranchDrop, Event: evt, Recipients: []string{}}, nil
}

// followsAuthor reports whether author is in the hub's followList and
// has not unfollowed the hub since last following it.
func (e *Engine) followsAuthor(ctx context.Context, author string) (bool, error) {
	following, err := e.followList(ctx)
	if err != nil {
		return false, err
	}
	if !slices.Contains(following, author) {
		return false, nil
	}
	gone, err := e.store.HasUnfollowed(ctx, author)
	if err != nil {
		return false, storeError("check unfollow", "", err)
	}
	return !gone, nil
}

// toggle removes the entry occupying evt's toggle key, or inserts evt
// when the slot is free.
func (e *Engine) toggle(ctx context.Context, evt event.Event, branch Branch) (Outcome, error) {
	existing, found, err := e.store.FindByToggleKey(ctx, evt.ToggleKey())
	if err != nil {
		return Outcome{}, storeError("find toggle partner", evt.ID, err)
	}
	if found {
		if err := e.store.Delete(ctx, existing.ID); err != nil {
			return Outcome{}, storeError("delete toggle partner", existing.ID, err)
		}
		return Outcome{Decision: DecisionToggledOff, Branch: branch, Event: existing, Recipients: []string{}}, nil
	}
	stored, err := e.insert(ctx, evt)
	if err != nil {
		return Outcome{}, err
	}
	return inserted(branch, stored), nil
}

// insert assigns the hub id and timestamp and stores the event.
func (e *Engine) insert(ctx context.Context, evt event.Event) (event.Event, error) {
	evt.ID = e.ids.Generate()
	evt.Timestamp = e.clock.Next()
	if err := e.store.Insert(ctx, evt); err != nil {
		return event.Event{}, storeError("insert", evt.ID, err)
	}
	return evt, nil
}

func inserted(branch Branch, evt event.Event) Outcome {
	return Outcome{Decision: DecisionInserted, Branch: branch, Event: evt, Recipients: []string{}}
}

// union returns a followed by the members of b not already present,
// without duplicates.
func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}
