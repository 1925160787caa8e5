// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent defines the participants of a chat room.

# Overview

An agent is anything that can take part in a group conversation: it can
reply to the conversation, vote on who should speak next, and vote on
which of several candidate replies is the most reasonable.

	┌─────────────────────────────────────────────────────────────┐
	│                    Responder Interface                      │
	│        (Participant, Respond, RolePlay, Ask)                │
	├─────────────────────────────────────────────────────────────┤
	│  ┌──────────────────┐        ┌──────────────────────────┐   │
	│  │  chatagent       │        │  zeroshot                │   │
	│  │  (prompts+votes) │        │  (template, abstains)    │   │
	│  └──────────────────┘        └──────────────────────────┘   │
	├─────────────────────────────────────────────────────────────┤
	│                    LLM Provider                             │
	└─────────────────────────────────────────────────────────────┘

# Core Components

Spec: the declarative description of an agent (alias, kind, llm, prompts).
Aliases are unique case-insensitively and the user alias "Avatar" is reserved.

Registry: maps a [Kind] to a [Factory] and builds responders from specs.

Directory: the live roster. Groups only keep aliases and resolve them here at
use time, so an agent deleted from the directory silently drops out of every
group that referenced it.

ParseRole: extracts the first "[name]" from a model reply and maps it to a
candidate index, or -1 when the reply cannot be understood. A -1 vote is an
abstention.
*/
package agent
