// Package api defines the request and response types of the agentroom HTTP API.
//
// # API Overview
//
// agentroom exposes a RESTful API for:
//   - Agent roster management (/api/v1/agents)
//   - Group CRUD (/api/v1/groups)
//   - Conversation actions: policy-driven send, step, max-vote, role-play,
//     message delete and resend
//   - A WebSocket stream of conversation events (/api/v1/groups/{name}/stream)
//   - Health monitoring and metrics
//
// # Authentication
//
// When API keys are configured, requests carry the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// When a JWT secret or public key is configured, requests carry a bearer token:
//
//	Authorization: Bearer <token>
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
