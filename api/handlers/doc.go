// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供群聊 HTTP API 的请求处理器实现。

# 概述

handlers 包实现了所有 HTTP 端点的请求处理逻辑，包括群组管理、
对话动作、Agent 名册、WebSocket 事件流、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，路由使用 Go 1.22 的方法与路径模式，
并通过 Swagger 注解生成 API 文档。

# 核心类型

  - GroupHandler     — 群组 CRUD 与 Send/Step/MaxVote/RolePlay/Resend
  - AgentHandler     — 在线 Agent 名册的增删查
  - StreamHandler    — 按群组推送事件的 WebSocket 端点
  - HealthHandler    — 存活与就绪探针（/health, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码，支持 Hijack

# 错误映射

ToAPIError 把服务层哨兵错误映射为 types.Error，再由 WriteError 转成 HTTP
状态码。客户端取消请求时返回 499，Send/Resend 同时附带已保存的部分结果。
*/
package handlers
