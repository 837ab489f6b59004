package sitemail

import "time"

// Exchange describes the RabbitMQ exchange name.
const Exchange = "sitemail"

// Routing key prefixes.
const (
	RPCRoutingKey         = "rpc"
	RPCResponseRoutingKey = RPCRoutingKey + ".response"
)

// RPC call names.
const (
	DeliveryCall = "delivery"
)

// DefaultRPCTimeout represents the default RPC timeout.
const DefaultRPCTimeout = 30 * time.Second

// ContactSubject is the subject of every contact form notification.
const ContactSubject = "New Contact Form Submission"

// DefaultPlaceholder is written into the message body for absent form fields.
const DefaultPlaceholder = "None"
