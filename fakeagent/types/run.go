// fakeagent/types/run.go
package types

import "encoding/json"

const (
	ManifestType     = "manifest"
	MessageType      = "message"
	AssistantRole    = "assistant"
	ManifestVersion  = "1.0.2"
	ManifestEnv      = "dev"
	InjectedErrorMsg = "custom error"
)

type RunRequest struct {
	Thread *Thread `json:"thread"`
}

type VersionManifest struct {
	Type     string                 `json:"type"`
	Version  string                 `json:"version"`
	Env      string                 `json:"env,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewVersionManifest builds the manifest describing the running agent.
func NewVersionManifest() VersionManifest {
	return VersionManifest{
		Type:    ManifestType,
		Version: ManifestVersion,
		Env:     ManifestEnv,
		Metadata: map[string]interface{}{
			"description": "Initial version of the agent",
			"features":    []string{"streaming", "lorem_ipsum_responses"},
		},
	}
}

type ActivityResponse struct {
	Type    string  `json:"type"`
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

func NewAssistantMessage(text string) ActivityResponse {
	return ActivityResponse{
		Type:    MessageType,
		Role:    AssistantRole,
		Content: TextContent(text),
	}
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

// RunResult is the buffered response of POST /run.
type RunResult struct {
	Manifest   VersionManifest    `json:"manifest"`
	Activities []ActivityResponse `json:"activities"`
}

type EventKind string

const (
	EventManifest EventKind = "manifest"
	EventActivity EventKind = "activity"
	EventError    EventKind = "error"
)

// Frame is one unit of a streamed run.
type Frame struct {
	Event EventKind   `json:"event"`
	Data  interface{} `json:"data"`
}

// RawFrame is a Frame as received by a client, with the payload left encoded.
type RawFrame struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data"`
}
