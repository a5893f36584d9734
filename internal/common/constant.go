// Package common contains wire constants and sentinel errors shared by the
// dialer client and its dev backend.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// ServiceName is the fully qualified gRPC service of the messaging backend.
// Payloads are google.protobuf.Struct messages in both directions.
const ServiceName = "dialer.v1.Messaging"

const (
	MethodPing                = "/" + ServiceName + "/Ping"
	MethodListConversations   = "/" + ServiceName + "/ListConversations"
	MethodListMessages        = "/" + ServiceName + "/ListMessages"
	MethodSendMessage         = "/" + ServiceName + "/SendMessage"
	MethodMarkRead            = "/" + ServiceName + "/MarkRead"
	MethodUpdateMessageStatus = "/" + ServiceName + "/UpdateMessageStatus"
	MethodDeleteMessage       = "/" + ServiceName + "/DeleteMessage"
	MethodGetPresence         = "/" + ServiceName + "/GetPresence"
	MethodSendTyping          = "/" + ServiceName + "/SendTyping"
	MethodSubscribe           = "/" + ServiceName + "/Subscribe"
)

// PingOK is the status reported by a healthy backend.
const PingOK = "OK"

// PhoneClaim is the JWT claim holding the account's own number.
const PhoneClaim = "phone"
