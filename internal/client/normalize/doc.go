// Package normalize turns loosely-typed backend records into canonical
// models.Message and models.Conversation values.
//
// Backends disagree on field names ("sid" vs "messageId", "dateSent" vs
// "sentAt"), timestamp formats and status vocabularies. The Normalizer
// resolves each attribute from an ordered list of candidate fields:
//
//   - id:        messageId, id/_id, sid/messageSid/MessageSid/SmsSid, then a
//     temporary id for locally originated sends only;
//   - timestamp: sentAt/dateSent, createdAt/dateCreated, updatedAt/dateUpdated,
//     time/timestamp, then the current time;
//   - direction: an explicit "direction" field, else "from" compared with the
//     signed-in number;
//   - status:    mapped onto the pending/sent/delivered/read/failed chain,
//     defaulting to sent for self and delivered for others.
//
// Records that cannot be placed in a conversation or lack an id are rejected
// with ErrNoConversation or ErrMissingID.
package normalize
