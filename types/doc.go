// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 agentroom 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、conversation、
persistence、api 等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Message           — 群聊消息（From、Type、Content、Timestamp、Error），追加后不可变
  - Participant       — 参与者（用户哨兵 Avatar 或 Agent）
  - Group             — 可持久化的群组记录 {name, agents, conversation}
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - 用户占位消息：AskUserMessage
  - 消息重发：Message.Resent 生成新身份的同内容消息
  - Context 传播：WithRequestID / WithUserID / WithRoles
  - 错误工具链：AsError / GetErrorCode / IsRetryable
*/
package types
