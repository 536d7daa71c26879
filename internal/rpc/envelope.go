package rpc

import (
	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// MetadataRealIP carries the originating client IP on remote calls whose
// semantics need it. Local calls pass the IP as an explicit argument.
const MetadataRealIP = "x-real-ip"

// request is the wire envelope around one method call.
type request struct {
	Method   string            `json:"method"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Body     []byte            `json:"body,omitempty"`
}

// response is the wire envelope around one method result.
type response struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	Body   []byte `json:"body,omitempty"`
}
