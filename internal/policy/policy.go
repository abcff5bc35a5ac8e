// Package policy holds the row-level authorization predicates.
//
// Every predicate is pure: callers load the relationship facts (memberships,
// ownership) and the predicate only decides. Services evaluate a predicate before
// every read and write; a denied read is reported as domain.ErrNotFound and a
// denied mutation of a visible row as domain.ErrForbidden.
package policy

import "conduit/internal/domain"

// CanViewEvent: public events are visible to everyone, private ones to active members.
func CanViewEvent(e *domain.Event, callerActive bool) bool {
	if e == nil {
		return false
	}
	return !e.IsPrivate || callerActive
}

// CanMutateEvent reports whether the caller owns the event.
func CanMutateEvent(callerID string, e *domain.Event) bool {
	return e != nil && callerID != "" && e.CreatorID == callerID
}

// CanInsertMembership: users may only add themselves to an event.
func CanInsertMembership(callerID, memberUserID string) bool {
	return callerID != "" && callerID == memberUserID
}

// CanViewMessage: event messages are visible to active members of the event,
// direct messages to their sender and recipient.
func CanViewMessage(callerID string, m *domain.Message, callerActiveInEvent bool) bool {
	if m == nil || callerID == "" {
		return false
	}
	if m.EventID != nil {
		return callerActiveInEvent
	}
	if m.RecipientID != nil {
		return callerID == m.SenderID || callerID == *m.RecipientID
	}
	return false
}

// CanSendMessage: the sender must be the caller; event messages additionally
// require an active membership.
func CanSendMessage(callerID string, m *domain.Message, callerActiveInEvent bool) bool {
	if m == nil || callerID == "" || m.SenderID != callerID {
		return false
	}
	if m.EventID != nil {
		return callerActiveInEvent
	}
	return m.RecipientID != nil
}

// CanMarkRead: the recipient of a direct message, or an active member for event messages.
func CanMarkRead(callerID string, m *domain.Message, callerActiveInEvent bool) bool {
	if m == nil || callerID == "" {
		return false
	}
	if m.RecipientID != nil {
		return callerID == *m.RecipientID
	}
	return m.EventID != nil && callerActiveInEvent
}

// SharesActiveEvent reports whether two users are co-present, i.e. both hold an
// active membership in at least one common event. It is symmetric.
func SharesActiveEvent(aEventIDs, bEventIDs []string) bool {
	if len(aEventIDs) == 0 || len(bEventIDs) == 0 {
		return false
	}
	small, large := aEventIDs, bEventIDs
	if len(small) > len(large) {
		small, large = large, small
	}
	set := make(map[string]struct{}, len(small))
	for _, id := range small {
		set[id] = struct{}{}
	}
	for _, id := range large {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// CanViewLocation: owners always see their row; others only when it is shared
// and they are co-present with the owner.
func CanViewLocation(callerID string, loc *domain.Location, callerEventIDs, ownerEventIDs []string) bool {
	if loc == nil || callerID == "" {
		return false
	}
	if callerID == loc.UserID {
		return true
	}
	return loc.IsShared && SharesActiveEvent(callerEventIDs, ownerEventIDs)
}

// CanMutateLocation reports whether the caller owns the location row.
func CanMutateLocation(callerID, ownerID string) bool {
	return callerID != "" && callerID == ownerID
}

// CanMutateProfile reports whether the caller owns the profile.
func CanMutateProfile(callerID, profileID string) bool {
	return callerID != "" && callerID == profileID
}

// CanViewAgendaItem: agenda items follow the visibility of their event.
func CanViewAgendaItem(e *domain.Event, callerActive bool) bool {
	return CanViewEvent(e, callerActive)
}

// CanCreateAgendaItem requires an active membership in the event.
func CanCreateAgendaItem(callerID string, item *domain.AgendaItem, callerActive bool) bool {
	return item != nil && callerID != "" && item.CreatorID == callerID && callerActive
}

// CanMutateAgendaItem reports whether the caller created the item.
func CanMutateAgendaItem(callerID string, item *domain.AgendaItem) bool {
	return item != nil && callerID != "" && item.CreatorID == callerID
}

// CanViewPin: public pins are visible to anyone who can see the event's members,
// private pins only to their creator.
func CanViewPin(callerID string, p *domain.Pin, callerActive bool) bool {
	if p == nil || callerID == "" {
		return false
	}
	if p.CreatorID == callerID {
		return true
	}
	return p.IsPublic && callerActive
}

// CanCreatePin requires an active membership in the event.
func CanCreatePin(callerID string, p *domain.Pin, callerActive bool) bool {
	return p != nil && callerID != "" && p.CreatorID == callerID && callerActive
}

// CanMutatePin reports whether the caller created the pin.
func CanMutatePin(callerID string, p *domain.Pin) bool {
	return p != nil && callerID != "" && p.CreatorID == callerID
}

// CanViewCall: participants, the creator and active members of the call's event.
func CanViewCall(callerID string, c *domain.VideoCall, callerActiveInEvent bool) bool {
	if c == nil || callerID == "" {
		return false
	}
	if c.CreatorID == callerID || c.HasParticipant(callerID) {
		return true
	}
	return c.EventID != nil && callerActiveInEvent
}

// CanEndCall reports whether the caller created the call.
func CanEndCall(callerID string, c *domain.VideoCall) bool {
	return c != nil && callerID != "" && c.CreatorID == callerID
}

// CanInvite: the inviter must be the caller and an active member of the event.
func CanInvite(callerID string, inv *domain.EventInvitation, callerActive bool) bool {
	return inv != nil && callerID != "" && inv.InviterID == callerID && callerActive
}

// CanViewInvitation: inviter, invitee, or an active member of the event.
func CanViewInvitation(callerID string, inv *domain.EventInvitation, callerActive bool) bool {
	if inv == nil || callerID == "" {
		return false
	}
	return inv.InviterID == callerID || inv.InviteeID == callerID || callerActive
}

// CanRespondInvitation: only the invitee may respond.
func CanRespondInvitation(callerID string, inv *domain.EventInvitation) bool {
	return inv != nil && callerID != "" && inv.InviteeID == callerID
}

// CanMutateDeviceToken reports whether the caller owns the device token.
func CanMutateDeviceToken(callerID string, t *domain.DeviceToken) bool {
	return t != nil && callerID != "" && t.UserID == callerID
}
